// Package dag provides the dependency graph of a resolution plan.
//
// # Overview
//
// Nodes are packages and edges point from a dependent to its dependency.
// The installer uses the graph to install dependencies before dependents,
// so progress output reads bottom-up and an interrupted run leaves the
// lower layers complete.
//
// # Basic Usage
//
//	g := dag.New()
//	g.AddNode(dag.Node{ID: "app"})
//	g.AddNode(dag.Node{ID: "lib"})
//	g.AddEdge(dag.Edge{From: "app", To: "lib"})
//
//	dag.DependencyOrder(g) // [lib app]
//
// # Cycles
//
// Registries do contain circular declarations. The graph accepts them:
// [DAG.Validate] reports them, [BreakCycles] removes the closing edges
// (run it on a [DAG.Clone] to keep the original), and [DependencyOrder]
// terminates on any input.
//
// # Metadata
//
// Nodes and edges carry [Metadata] maps: the resolved version on a node,
// the requirement line on an edge.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use. Callers must synchronize
// access if multiple goroutines read or modify the same graph.
package dag
