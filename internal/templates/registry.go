// Package templates holds the predefined decision-graph documents a new
// document can be seeded from.
package templates

import (
	"sort"

	"github.com/loocor/rules-editor/internal/decision"
)

var registry = map[string]string{
	"blank": `{
	  "contentType": "application/vnd.gorules.decision",
	  "nodes": [],
	  "edges": []
	}`,

	"shipping-fees": `{
	  "contentType": "application/vnd.gorules.decision",
	  "nodes": [
	    {"id": "req", "type": "inputNode", "name": "Request"},
	    {"id": "fees", "type": "decisionTableNode", "name": "Shipping Fees"},
	    {"id": "res", "type": "outputNode", "name": "Response"}
	  ],
	  "edges": [
	    {"id": "e1", "sourceId": "req", "targetId": "fees"},
	    {"id": "e2", "sourceId": "fees", "targetId": "res"}
	  ]
	}`,

	"fraud-risk": `{
	  "contentType": "application/vnd.gorules.decision",
	  "nodes": [
	    {"id": "req", "type": "inputNode", "name": "Request"},
	    {"id": "score", "type": "expressionNode", "name": "Risk Score"},
	    {"id": "rules", "type": "decisionTableNode", "name": "Risk Rules"},
	    {"id": "res", "type": "outputNode", "name": "Response"}
	  ],
	  "edges": [
	    {"id": "e1", "sourceId": "req", "targetId": "score"},
	    {"id": "e2", "sourceId": "score", "targetId": "rules"},
	    {"id": "e3", "sourceId": "rules", "targetId": "res"}
	  ]
	}`,
}

// Lookup returns a fresh copy of the predefined document for the given key.
// Unknown keys report ok=false; callers treat that as a no-op.
func Lookup(key string) (decision.Content, bool) {
	raw, ok := registry[key]
	if !ok {
		return decision.Content{}, false
	}
	c, err := decision.Decode([]byte(raw))
	if err != nil {
		return decision.Content{}, false
	}
	return c, true
}

// Keys lists the available template keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
