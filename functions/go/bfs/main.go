package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/graph/simple"

	"github.com/3s-rg-codes/fnbridge/pkg/function"
	"github.com/3s-rg-codes/fnbridge/pkg/functionRuntimeInterface"
)

type InputData struct {
	Size int  `json:"size"`
	Seed *int `json:"seed,omitempty"` // Optional
}

type OutputData struct {
	Result      []int64 `json:"result"`
	Measurement struct {
		GraphGeneratingTimeMicroseconds int64 `json:"graph_generating_time_us"`
		ComputeTimeMicroseconds         int64 `json:"compute_time_us"`
	} `json:"measurement"`
}

func main() {
	f := functionRuntimeInterface.New()
	f.Ready(function.ResultFunc(handler))
}

// inspired by https://github.com/spcl/serverless-benchmarks/blob/master/benchmarks/500.scientific/503.graph-bfs/python/function.py

func handler(ctx context.Context, in *function.Request) (any, error) {
	var input InputData
	if err := json.Unmarshal([]byte(in.Data), &input); err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}

	seed := time.Now().UnixNano()
	if input.Seed != nil {
		seed = int64(*input.Seed)
	}
	rng := rand.New(rand.NewSource(seed))

	startGraph := time.Now()
	graph := generateBarabasiAlbert(rng, input.Size, 10)
	graphDuration := time.Since(startGraph).Microseconds()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	startBFS := time.Now()
	result := bfs(graph, 0)
	bfsDuration := time.Since(startBFS).Microseconds()

	output := OutputData{
		Result: result,
	}
	output.Measurement.GraphGeneratingTimeMicroseconds = graphDuration
	output.Measurement.ComputeTimeMicroseconds = bfsDuration

	return output, nil
}

// generateBarabasiAlbert creates a scale-free graph using a simple preferential attachment model
func generateBarabasiAlbert(rng *rand.Rand, n, m int) *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()

	if n <= 0 || m <= 0 {
		return g
	}
	if m > n {
		m = n
	}

	// Initial fully-connected core of m nodes
	for i := 0; i < m; i++ {
		g.AddNode(simple.Node(i))
		for j := 0; j < i; j++ {
			g.SetEdge(g.NewEdge(simple.Node(i), simple.Node(j)))
		}
	}

	// Preferential attachment
	for i := m; i < n; i++ {
		targets := preferentialTargets(rng, g, m)
		newNode := simple.Node(i)
		g.AddNode(newNode)
		for _, t := range targets {
			g.SetEdge(g.NewEdge(newNode, simple.Node(t)))
		}
	}

	return g
}

func preferentialTargets(rng *rand.Rand, g *simple.UndirectedGraph, m int) []int64 {
	var targets []int64
	seen := make(map[int64]bool)

	nodes := g.Nodes()
	var pool []int64
	distinct := 0

	for nodes.Next() {
		node := nodes.Node()
		degree := g.From(node.ID()).Len()
		if degree > 0 {
			distinct++
		}
		for i := 0; i < degree; i++ {
			pool = append(pool, node.ID())
		}
	}
	if m > distinct {
		m = distinct
	}

	for len(targets) < m && len(pool) > 0 {
		candidate := pool[rng.Intn(len(pool))]
		if !seen[candidate] {
			seen[candidate] = true
			targets = append(targets, candidate)
		}
	}

	return targets
}

func bfs(g *simple.UndirectedGraph, start int64) []int64 {
	if g.Node(start) == nil {
		return nil
	}
	visited := make(map[int64]bool)
	var result []int64
	var queue []int64

	queue = append(queue, start)
	visited[start] = true

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		result = append(result, curr)

		neighbors := g.From(curr)
		for neighbors.Next() {
			n := neighbors.Node().ID()
			if !visited[n] {
				visited[n] = true
				queue = append(queue, n)
			}
		}
	}

	return result
}
