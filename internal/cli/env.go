package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ppiankov/corroborate/internal/metrics"
	"github.com/ppiankov/corroborate/internal/model"
	"github.com/ppiankov/corroborate/internal/store/sqlstore"
	"github.com/ppiankov/corroborate/internal/worker"
)

// env is what every database-backed command needs
type env struct {
	cfg     *model.Config
	logger  *slog.Logger
	store   *sqlstore.Store
	metrics *metrics.Metrics
	server  *http.Server
}

// setup loads the configuration, opens the store and starts the metrics
// endpoint when one is configured
func setup(ctx context.Context) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log)

	s, err := sqlstore.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, logger)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, logger: logger, store: s}
	if cfg.Metrics.Addr != "" {
		e.metrics = metrics.New()
		reg := prometheus.NewRegistry()
		if err := e.metrics.Register(reg); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		e.server = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metrics.Handler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", cfg.Metrics.Addr, "error", err)
			}
		}()
		logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
	}
	return e, nil
}

func (e *env) close() {
	if e.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.server.Shutdown(ctx)
	}
	e.store.Stats().LogSummary(e.logger, "validation_results")
	if err := e.store.Close(); err != nil {
		e.logger.Warn("failed to close store", "error", err)
	}
}

// idFlags are the query and article selections shared by validate, vote and run
type idFlags struct {
	queries      string
	articles     string
	queriesFile  string
	articlesFile string
}

func (f *idFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.queries, "queries", "q", "", "query IDs, e.g. 1,4-6")
	cmd.Flags().StringVarP(&f.articles, "articles", "a", "", "article IDs, e.g. 10-20")
	cmd.Flags().StringVar(&f.queriesFile, "queries-file", "", "file with one query ID per line")
	cmd.Flags().StringVar(&f.articlesFile, "articles-file", "", "file with one article ID per line")
}

// resolve merges the inline lists with the ID files
func (f *idFlags) resolve() ([]model.QueryID, []model.ArticleID, error) {
	qs, err := readIDs(f.queries, f.queriesFile)
	if err != nil {
		return nil, nil, fmt.Errorf("queries: %w", err)
	}
	as, err := readIDs(f.articles, f.articlesFile)
	if err != nil {
		return nil, nil, fmt.Errorf("articles: %w", err)
	}
	if len(qs) == 0 {
		return nil, nil, errors.New("no query IDs given (use -q or --queries-file)")
	}

	queries := make([]model.QueryID, len(qs))
	for i, id := range qs {
		queries[i] = model.QueryID(id)
	}
	articles := make([]model.ArticleID, len(as))
	for i, id := range as {
		articles[i] = model.ArticleID(id)
	}
	return queries, articles, nil
}

func readIDs(list, file string) ([]int64, error) {
	var ids []int64
	if list != "" {
		parsed, err := worker.ParseIDList(list)
		if err != nil {
			return nil, err
		}
		ids = append(ids, parsed...)
	}
	if file != "" {
		fromFile, err := worker.ReadIDsFromFile(file)
		if err != nil {
			return nil, err
		}
		ids = append(ids, fromFile...)
	}
	return ids, nil
}
