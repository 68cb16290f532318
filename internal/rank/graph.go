// Package rank implements iterative mutual-reinforcement ranking over weighted undirected graphs
package rank

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Default ranking parameters
const (
	DefaultIterations = 100
	DefaultThreshold  = 0.0001
	DefaultDamping    = 0.8
)

var (
	ErrSelfEdge       = errors.New("self-edge")
	ErrNegativeWeight = errors.New("negative weight")
	ErrNodeIndex      = errors.New("node index out of range")
	ErrDamping        = errors.New("damping must be in [0,1]")
)

type edge struct {
	to     int
	weight float64
}

type node[T any] struct {
	weight  float64
	payload T
	edges   []edge // sorted by neighbour index so sums are reproducible
}

// set inserts or replaces the edge to j
func (n *node[T]) set(j int, weight float64) {
	k := sort.Search(len(n.edges), func(k int) bool { return n.edges[k].to >= j })
	if k < len(n.edges) && n.edges[k].to == j {
		n.edges[k].weight = weight
		return
	}
	n.edges = append(n.edges, edge{})
	copy(n.edges[k+1:], n.edges[k:])
	n.edges[k] = edge{to: j, weight: weight}
}

func (n *node[T]) total() float64 {
	sum := 0.0
	for _, e := range n.edges {
		sum += e.weight
	}
	return sum
}

// Graph ranks arbitrary payloads by PageRank-style power iteration.
// Nodes are addressed by the index returned from AddNode.
type Graph[T any] struct {
	nodes      []*node[T]
	iterations int
}

// New returns an empty graph
func New[T any]() *Graph[T] {
	return &Graph[T]{}
}

// Len returns the number of nodes
func (g *Graph[T]) Len() int {
	return len(g.nodes)
}

// AddNode adds a node with an initial weight and returns its index.
// A negative initial weight is raised to zero.
func (g *Graph[T]) AddNode(weight float64, payload T) int {
	if weight < 0 || math.IsNaN(weight) {
		weight = 0
	}
	g.nodes = append(g.nodes, &node[T]{
		weight:  weight,
		payload: payload,
	})
	return len(g.nodes) - 1
}

// AddEdge connects i and j with an undirected edge.
// Adding the same edge twice replaces its weight.
func (g *Graph[T]) AddEdge(i int, weight float64, j int) error {
	if i < 0 || i >= len(g.nodes) || j < 0 || j >= len(g.nodes) {
		return fmt.Errorf("%w: %d-%d with %d nodes", ErrNodeIndex, i, j, len(g.nodes))
	}
	if i == j {
		return fmt.Errorf("%w: %d", ErrSelfEdge, i)
	}
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return fmt.Errorf("%w: %v on %d-%d", ErrNegativeWeight, weight, i, j)
	}

	g.nodes[i].set(j, weight)
	g.nodes[j].set(i, weight)
	return nil
}

// Rank runs the power iteration until maxIterations is reached or the largest
// per-node change in one iteration falls below threshold.
// All nodes update from the previous iteration's weights.
func (g *Graph[T]) Rank(maxIterations int, threshold, damping float64) error {
	if damping < 0 || damping > 1 || math.IsNaN(damping) {
		return fmt.Errorf("%w: got %v", ErrDamping, damping)
	}
	g.iterations = 0
	if len(g.nodes) == 0 {
		return nil
	}

	prev := make([]float64, len(g.nodes))
	next := make([]float64, len(g.nodes))
	totals := make([]float64, len(g.nodes))
	for i, n := range g.nodes {
		prev[i] = n.weight
		totals[i] = n.total()
	}

	for it := 0; it < maxIterations; it++ {
		maxDelta := 0.0
		for i, n := range g.nodes {
			sum := 0.0
			for _, e := range n.edges {
				// neighbours with only zero-weight edges pass nothing on
				if total := totals[e.to]; total > 0 {
					sum += e.weight / total * prev[e.to]
				}
			}
			next[i] = (1 - damping) + damping*sum
			if d := math.Abs(next[i] - prev[i]); d > maxDelta {
				maxDelta = d
			}
		}
		prev, next = next, prev
		g.iterations = it + 1
		if maxDelta < threshold {
			break
		}
	}

	for i, n := range g.nodes {
		n.weight = prev[i]
	}
	return nil
}

// RankDefault ranks with the default parameters
func (g *Graph[T]) RankDefault() error {
	return g.Rank(DefaultIterations, DefaultThreshold, DefaultDamping)
}

// Iterations returns how many iterations the last Rank call performed
func (g *Graph[T]) Iterations() int {
	return g.iterations
}

// Weight returns the current weight of node i
func (g *Graph[T]) Weight(i int) float64 {
	return g.nodes[i].weight
}

// Ranked is a payload with its final weight
type Ranked[T any] struct {
	Index   int
	Weight  float64
	Payload T
}

// RankedPayloads returns every node in insertion order
func (g *Graph[T]) RankedPayloads() []Ranked[T] {
	out := make([]Ranked[T], len(g.nodes))
	for i, n := range g.nodes {
		out[i] = Ranked[T]{Index: i, Weight: n.weight, Payload: n.payload}
	}
	return out
}

// SortedRankedPayloads returns every node by descending weight.
// Equal weights keep insertion order.
func (g *Graph[T]) SortedRankedPayloads() []Ranked[T] {
	out := g.RankedPayloads()
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Weight > out[b].Weight
	})
	return out
}
