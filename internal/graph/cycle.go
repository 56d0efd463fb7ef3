package graph

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// EdgeReader returns the distinct harness ids a harness embeds.
type EdgeReader interface {
	ChildrenOf(ctx context.Context, parentID string) ([]string, error)
}

// WouldCreateCycle reports whether adding the edge parentID -> childID would
// close a cycle: childID == parentID, or parentID is reachable from childID.
//
// The algorithm:
//  1. A self-embedding (parentID == childID) is a cycle without any lookup.
//  2. Push childID and pop nodes depth-first from an explicit stack.
//  3. Popping parentID means the new edge would close a loop; stop.
//  4. Otherwise mark the node visited and push its unvisited children,
//     read through edges (the stored documents of active harnesses).
//  5. An empty stack means parentID is unreachable and the edge is safe.
//
// The visited set expands shared sub-assemblies (diamonds) once, and a cycle
// already present in stored data cannot make the walk loop. ctx is checked
// on every pop so a cancelled request stops the walk; a failing edge read is
// returned wrapped with the node being expanded.
func WouldCreateCycle(ctx context.Context, edges EdgeReader, parentID, childID string) (bool, error) {
	if parentID == childID {
		return true, nil
	}

	visited := make(map[string]bool)
	stack := []string{childID}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == parentID {
			return true, nil
		}
		if visited[node] {
			continue
		}
		visited[node] = true

		children, err := edges.ChildrenOf(ctx, node)
		if err != nil {
			return false, fmt.Errorf("children of %s: %w", node, err)
		}
		for _, c := range children {
			if !visited[c] {
				stack = append(stack, c)
			}
		}
	}
	return false, nil
}

// CycleReport is one strongly connected component of the embedding graph
// that contains a cycle.
type CycleReport struct {
	Path    []string `json:"path"`    // e.g. ["a", "b", "a"]
	Message string   `json:"message"` // human-readable description
}

// AnalyzeCycles finds every cycle in a whole graph (parent -> children).
//
// It backs Engine.Audit ("harnessctl audit"). The write path never admits
// a cycle, so a report here means stored data was edited outside the engine.
//
// The algorithm:
//  1. normalize the graph so every node has a sorted, de-duplicated
//     neighbour list, including nodes that only appear as targets
//  2. use Tarjan's algorithm (tarjanSCC) to find strongly connected components
//  3. report each component with more than one member, or a single member
//     with a self-loop; a lone node without one is not a cycle
//  4. sort the reports by their first path element
//
// Output is deterministic: nodes and neighbours are visited in sorted order
// and each path starts at the component's smallest id. An acyclic graph
// returns an empty slice, never nil.
func AnalyzeCycles(g map[string][]string) []CycleReport {
	sorted := normalize(g)
	reports := []CycleReport{}
	for _, scc := range tarjanSCC(sorted) {
		if len(scc) > 1 || hasSelfLoop(scc[0], sorted) {
			reports = append(reports, sccToReport(scc, sorted))
		}
	}
	slices.SortFunc(reports, func(a, b CycleReport) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return reports
}

// normalize copies g with sorted, de-duplicated neighbour lists and an entry
// for every node that only appears as a target.
func normalize(g map[string][]string) map[string][]string {
	out := make(map[string][]string, len(g))
	for node, children := range g {
		c := slices.Clone(children)
		slices.Sort(c)
		out[node] = slices.Compact(c)
	}
	for _, children := range g {
		for _, c := range children {
			if _, ok := out[c]; !ok {
				out[c] = nil
			}
		}
	}
	return out
}

// hasSelfLoop reports whether node embeds itself directly.
func hasSelfLoop(node string, g map[string][]string) bool {
	return slices.Contains(g[node], node)
}

// tarjanSCC returns the strongly connected components of g using Tarjan's
// algorithm. Every node appears in exactly one component; single-node
// components without a self-loop are not cycles and the caller filters them.
//
// Each node gets an index in visit order and a lowlink, the smallest index
// reachable from it through the current DFS tree plus at most one back edge.
// strongConnect(v):
//  1. assigns v the next index, sets lowlink[v] to it and pushes v
//  2. for each neighbour w: an unvisited w is explored recursively and v
//     inherits its lowlink; a w still on the stack is a back edge into the
//     current component, so lowlink[v] drops to w's index
//  3. if lowlink[v] == index[v], v is the root of a component: pop the stack
//     down to v and emit the popped nodes as one component
//
// Roots are tried in sorted order so the result is stable across runs.
// Recursion depth is bounded by the longest embedding chain.
func tarjanSCC(g map[string][]string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g[v] {
			if _, seen := indices[w]; !seen {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(g))
	for n := range g {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)
	for _, n := range nodes {
		if _, seen := indices[n]; !seen {
			strongConnect(n)
		}
	}
	return sccs
}

// sccToReport converts a component to a CycleReport. A self-loop reports
// [id, id]; a larger component reports one closed walk through its members
// (see cyclePath).
func sccToReport(scc []string, g map[string][]string) CycleReport {
	slices.Sort(scc)
	if len(scc) == 1 {
		id := scc[0]
		return CycleReport{
			Path:    []string{id, id},
			Message: fmt.Sprintf("harness %s embeds itself", id),
		}
	}
	path := cyclePath(scc, g)
	return CycleReport{
		Path:    path,
		Message: fmt.Sprintf("embedding cycle: %s", strings.Join(path, " -> ")),
	}
}

// cyclePath follows edges inside the component from its smallest member
// until it returns to it.
//
// Strategy: from the current node take the first (sorted) neighbour that is
// in the component and not yet on the path. When none is left, close the
// path at the start if the current node has an edge back to it. Every member
// of a component reaches the start, so the walk prefers unvisited members
// and returns to the start last; the result names the start at both ends.
func cyclePath(scc []string, g map[string][]string) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	start := scc[0]
	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		next := ""
		closes := false
		for _, w := range g[current] {
			if !members[w] {
				continue
			}
			if w == start {
				closes = true
				continue
			}
			if !visited[w] {
				next = w
				break
			}
		}
		if next == "" {
			if closes {
				path = append(path, start)
			}
			return path
		}
		visited[next] = true
		path = append(path, next)
		current = next
	}
}
