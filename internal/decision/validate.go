package decision

import (
	appErr "github.com/loocor/rules-editor/pkg/errors"
)

// ErrCircular is returned whenever a persistence path encounters a cyclic graph.
var ErrCircular = appErr.New(appErr.CodeValidation, "Circular dependencies detected")

// dfs colors
const (
	white = iota // unvisited
	gray         // on the recursion stack
	black        // fully explored
)

// ValidateAcyclic decides whether the directed graph induced by the content's
// edges contains a cycle. The vertex set is the union of all source/target ids
// appearing in edges; duplicate edges between the same ordered pair collapse.
// Runs in O(V+E).
func ValidateAcyclic(c Content) error {
	adj := make(map[string][]string)
	dedup := make(map[string]map[string]struct{})
	for _, e := range c.Edges {
		targets, ok := dedup[e.SourceID]
		if !ok {
			targets = make(map[string]struct{})
			dedup[e.SourceID] = targets
		}
		if _, dup := targets[e.TargetID]; dup {
			continue
		}
		targets[e.TargetID] = struct{}{}
		adj[e.SourceID] = append(adj[e.SourceID], e.TargetID)
		if _, ok := adj[e.TargetID]; !ok {
			adj[e.TargetID] = nil
		}
	}

	color := make(map[string]int, len(adj))
	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		for _, next := range adj[id] {
			switch color[next] {
			case gray:
				return true
			case white:
				if visit(next) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for id := range adj {
		if color[id] == white && visit(id) {
			return ErrCircular
		}
	}
	return nil
}
