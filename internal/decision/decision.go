package decision

import (
	"bytes"
	"encoding/json"
)

// Node is a single decision node. Its shape beyond the id is owned by the
// editor frontend and carried through untouched.
type Node struct {
	ID  string
	Raw json.RawMessage
}

// UnmarshalJSON extracts the id and keeps the full payload for round-tripping.
func (n *Node) UnmarshalJSON(b []byte) error {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	n.ID = probe.ID
	raw, err := compact(b)
	if err != nil {
		return err
	}
	n.Raw = raw
	return nil
}

// MarshalJSON emits the original payload when present.
func (n Node) MarshalJSON() ([]byte, error) {
	if len(n.Raw) > 0 {
		return n.Raw, nil
	}
	return json.Marshal(struct {
		ID string `json:"id"`
	}{n.ID})
}

// Edge is a directed connection between two decision nodes.
type Edge struct {
	ID       string
	SourceID string
	TargetID string
	Raw      json.RawMessage
}

func (e *Edge) UnmarshalJSON(b []byte) error {
	var probe struct {
		ID       string `json:"id"`
		SourceID string `json:"sourceId"`
		TargetID string `json:"targetId"`
	}
	if err := json.Unmarshal(b, &probe); err != nil {
		return err
	}
	e.ID = probe.ID
	e.SourceID = probe.SourceID
	e.TargetID = probe.TargetID
	raw, err := compact(b)
	if err != nil {
		return err
	}
	e.Raw = raw
	return nil
}

// compact normalizes payload formatting so that encoding is deterministic
// no matter how the incoming document was indented.
func compact(b []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return nil, err
	}
	return append(json.RawMessage(nil), buf.Bytes()...), nil
}

func (e Edge) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	return json.Marshal(struct {
		ID       string `json:"id"`
		SourceID string `json:"sourceId"`
		TargetID string `json:"targetId"`
	}{e.ID, e.SourceID, e.TargetID})
}

// Content is an in-memory decision graph: ordered nodes and edges.
// It may transiently contain a cycle while being edited; acyclicity is
// enforced as a precondition for persistence, not continuously.
type Content struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// NodeIDs returns the set of node ids present in the content.
func (c Content) NodeIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(c.Nodes))
	for _, n := range c.Nodes {
		ids[n.ID] = struct{}{}
	}
	return ids
}
