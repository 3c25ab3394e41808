package decision

import (
	"encoding/json"
	"strings"
	"testing"

	appErr "github.com/loocor/rules-editor/pkg/errors"
	"github.com/stretchr/testify/require"
)

const sampleEnvelope = `{
  "contentType": "application/vnd.gorules.decision",
  "nodes": [
    {"id": "n1", "type": "inputNode", "name": "Request"},
    {"id": "n2", "type": "decisionTableNode", "name": "Fees"}
  ],
  "edges": [
    {"id": "e1", "sourceId": "n1", "targetId": "n2"}
  ]
}`

func TestDecodeRoundTrip(t *testing.T) {
	c, err := Decode([]byte(sampleEnvelope))
	require.NoError(t, err)
	require.Len(t, c.Nodes, 2)
	require.Len(t, c.Edges, 1)
	require.Equal(t, "n1", c.Nodes[0].ID)
	require.Equal(t, "n1", c.Edges[0].SourceID)
	require.Equal(t, "n2", c.Edges[0].TargetID)

	out, err := Encode(c)
	require.NoError(t, err)

	again, err := Decode(out)
	require.NoError(t, err)
	require.Equal(t, c.Nodes, again.Nodes)
	require.Equal(t, c.Edges, again.Edges)

	// Opaque editor-owned fields survive the trip.
	require.Contains(t, string(out), `"name": "Fees"`)
}

func TestEncodeKeyOrderAndIndent(t *testing.T) {
	out, err := Encode(Content{})
	require.NoError(t, err)

	s := string(out)
	ct := strings.Index(s, `"contentType"`)
	nodes := strings.Index(s, `"nodes"`)
	edges := strings.Index(s, `"edges"`)
	require.True(t, ct >= 0 && ct < nodes && nodes < edges, "key order must be contentType, nodes, edges: %s", s)
	require.True(t, strings.HasPrefix(s, "{\n  \""), "expected 2-space indentation: %s", s)

	// Empty content renders empty sequences, never null.
	require.NotContains(t, s, "null")
}

func TestEncodeDeterministic(t *testing.T) {
	c, err := Decode([]byte(sampleEnvelope))
	require.NoError(t, err)

	a, err := Encode(c)
	require.NoError(t, err)
	b, err := Encode(c)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestDecodeRejectsWrongContentType(t *testing.T) {
	payload := `{"contentType": "application/json", "nodes": [], "edges": []}`
	_, err := Decode([]byte(payload))
	require.Error(t, err)
	require.True(t, appErr.IsCode(err, appErr.CodeFormat))

	ae := err.(*appErr.AppError)
	require.Equal(t, "Invalid content type", ae.Message)
}

func TestDecodeRejectsMissingContentType(t *testing.T) {
	_, err := Decode([]byte(`{"nodes": [], "edges": []}`))
	require.Error(t, err)
	require.True(t, appErr.IsCode(err, appErr.CodeFormat))
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"contentType": `))
	require.Error(t, err)
	require.True(t, appErr.IsCode(err, appErr.CodeFormat))
}

func TestDecodeDefaultsMissingSequences(t *testing.T) {
	c, err := Decode([]byte(`{"contentType": "application/vnd.gorules.decision"}`))
	require.NoError(t, err)
	require.NotNil(t, c.Nodes)
	require.NotNil(t, c.Edges)
	require.Empty(t, c.Nodes)
	require.Empty(t, c.Edges)
}

func TestDecodeDropsDanglingEdges(t *testing.T) {
	payload := `{
	  "contentType": "application/vnd.gorules.decision",
	  "nodes": [{"id": "a"}, {"id": "b"}],
	  "edges": [
	    {"id": "e1", "sourceId": "a", "targetId": "b"},
	    {"id": "e2", "sourceId": "a", "targetId": "ghost"},
	    {"id": "e3", "sourceId": "ghost", "targetId": "b"}
	  ]
	}`
	c, err := Decode([]byte(payload))
	require.NoError(t, err)
	require.Len(t, c.Edges, 1)
	require.Equal(t, "e1", c.Edges[0].ID)
}

func TestContentFromColumns(t *testing.T) {
	c, err := ContentFromColumns([]byte(`[{"id": "a"}]`), nil)
	require.NoError(t, err)
	require.Len(t, c.Nodes, 1)
	require.NotNil(t, c.Edges)
	require.Empty(t, c.Edges)

	// The lenient path keeps dangling edges; only external ingestion filters.
	c, err = ContentFromColumns([]byte(`[{"id": "a"}]`), []byte(`[{"id": "e", "sourceId": "a", "targetId": "ghost"}]`))
	require.NoError(t, err)
	require.Len(t, c.Edges, 1)
}

func TestNodeMarshalWithoutRaw(t *testing.T) {
	b, err := json.Marshal(Node{ID: "x"})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"x"}`, string(b))

	b, err = json.Marshal(Edge{ID: "e", SourceID: "a", TargetID: "b"})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"e","sourceId":"a","targetId":"b"}`, string(b))
}
