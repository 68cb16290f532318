package worker

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadIDsFromFile reads numeric IDs from a file, one per line.
// Blank lines and lines starting with # are skipped, duplicates are dropped.
func ReadIDsFromFile(filePath string) ([]int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadIDs(file)
}

// ReadIDs reads line-separated IDs from r
func ReadIDs(r io.Reader) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)

	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid id %q", line, text)
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ids, nil
}

// ParseIDList parses a comma-separated list of IDs and inclusive ranges such as "1,4-6"
func ParseIDList(s string) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]bool)
	add := func(id int64) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", part)
		}
		if !isRange {
			add(from)
			continue
		}

		to, err := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
		if err != nil || to < from {
			return nil, fmt.Errorf("invalid range %q", part)
		}
		for id := from; id <= to; id++ {
			add(id)
		}
	}

	return ids, nil
}
