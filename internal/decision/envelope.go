package decision

import (
	"encoding/json"

	appErr "github.com/loocor/rules-editor/pkg/errors"
)

// ContentType tags every persisted document envelope. It is the sole
// format-versioning marker: payloads without the exact tag are rejected
// on ingestion.
const ContentType = "application/vnd.gorules.decision"

// envelope is the on-disk/transmitted form of a document. Field order is the
// serialization key order.
type envelope struct {
	ContentType string `json:"contentType"`
	Nodes       []Node `json:"nodes"`
	Edges       []Edge `json:"edges"`
}

// Encode produces the deterministic, pretty-printed JSON envelope for the
// content: keys in contentType, nodes, edges order, 2-space indentation.
func Encode(c Content) ([]byte, error) {
	env := envelope{ContentType: ContentType, Nodes: c.Nodes, Edges: c.Edges}
	if env.Nodes == nil {
		env.Nodes = []Node{}
	}
	if env.Edges == nil {
		env.Edges = []Edge{}
	}
	b, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "encode document failed")
	}
	return b, nil
}

// Decode parses an externally supplied payload. The contentType tag must
// match exactly, nodes and edges default to empty when absent, and edges
// referencing a node id not present among the parsed nodes are silently
// dropped rather than failing the whole import.
func Decode(raw []byte) (Content, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Content{}, appErr.Wrap(err, appErr.CodeFormat, "malformed document payload")
	}
	if env.ContentType != ContentType {
		return Content{}, appErr.New(appErr.CodeFormat, "Invalid content type")
	}
	c := contentOf(env)
	ids := c.NodeIDs()
	kept := c.Edges[:0]
	for _, e := range c.Edges {
		if _, ok := ids[e.SourceID]; !ok {
			continue
		}
		if _, ok := ids[e.TargetID]; !ok {
			continue
		}
		kept = append(kept, e)
	}
	c.Edges = kept
	return c, nil
}

// ContentFromColumns assembles content from separately stored node and edge
// sequences. Stored rows were validated on the way in, so only defaulting
// applies: no tag check, no dangling-edge filter.
func ContentFromColumns(nodes, edges []byte) (Content, error) {
	var env envelope
	if len(nodes) > 0 {
		if err := json.Unmarshal(nodes, &env.Nodes); err != nil {
			return Content{}, appErr.Wrap(err, appErr.CodeInternal, "decode stored nodes failed")
		}
	}
	if len(edges) > 0 {
		if err := json.Unmarshal(edges, &env.Edges); err != nil {
			return Content{}, appErr.Wrap(err, appErr.CodeInternal, "decode stored edges failed")
		}
	}
	return contentOf(env), nil
}

func contentOf(env envelope) Content {
	c := Content{Nodes: env.Nodes, Edges: env.Edges}
	if c.Nodes == nil {
		c.Nodes = []Node{}
	}
	if c.Edges == nil {
		c.Edges = []Edge{}
	}
	return c
}
