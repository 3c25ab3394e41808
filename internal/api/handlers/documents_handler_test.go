package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/loocor/rules-editor/internal/api/middleware"
	"github.com/loocor/rules-editor/internal/api/types"
	"github.com/loocor/rules-editor/internal/decision"
	"github.com/loocor/rules-editor/internal/models"
	appErr "github.com/loocor/rules-editor/pkg/errors"
)

type mockDocumentService struct {
	mock.Mock
}

func (m *mockDocumentService) CreateDocument(ctx context.Context, userID uuid.UUID, name string) (*models.Document, error) {
	args := m.Called(ctx, userID, name)
	d, _ := args.Get(0).(*models.Document)
	return d, args.Error(1)
}

func (m *mockDocumentService) CreateFromTemplate(ctx context.Context, userID uuid.UUID, name, key string) (*models.Document, bool, error) {
	args := m.Called(ctx, userID, name, key)
	d, _ := args.Get(0).(*models.Document)
	return d, args.Bool(1), args.Error(2)
}

func (m *mockDocumentService) GetDocument(ctx context.Context, documentID, userID uuid.UUID) (*models.Document, error) {
	args := m.Called(ctx, documentID, userID)
	d, _ := args.Get(0).(*models.Document)
	return d, args.Error(1)
}

func (m *mockDocumentService) ListDocuments(ctx context.Context, userID uuid.UUID) ([]models.Document, error) {
	args := m.Called(ctx, userID)
	d, _ := args.Get(0).([]models.Document)
	return d, args.Error(1)
}

func (m *mockDocumentService) RenameDocument(ctx context.Context, documentID, userID uuid.UUID, name string) (*models.Document, error) {
	args := m.Called(ctx, documentID, userID, name)
	d, _ := args.Get(0).(*models.Document)
	return d, args.Error(1)
}

func (m *mockDocumentService) DeleteDocument(ctx context.Context, documentID, userID uuid.UUID) error {
	return m.Called(ctx, documentID, userID).Error(0)
}

func (m *mockDocumentService) ApplyTemplate(ctx context.Context, documentID, userID uuid.UUID, key string) (*models.DocumentRevision, bool, error) {
	args := m.Called(ctx, documentID, userID, key)
	rev, _ := args.Get(0).(*models.DocumentRevision)
	return rev, args.Bool(1), args.Error(2)
}

func (m *mockDocumentService) SaveRevision(ctx context.Context, documentID, userID uuid.UUID, content decision.Content) (*models.DocumentRevision, error) {
	args := m.Called(ctx, documentID, userID, content)
	rev, _ := args.Get(0).(*models.DocumentRevision)
	return rev, args.Error(1)
}

func (m *mockDocumentService) Import(ctx context.Context, documentID, userID uuid.UUID, payload []byte) (*models.DocumentRevision, error) {
	args := m.Called(ctx, documentID, userID, payload)
	rev, _ := args.Get(0).(*models.DocumentRevision)
	return rev, args.Error(1)
}

func (m *mockDocumentService) Export(ctx context.Context, documentID, userID uuid.UUID, version int, format string) (string, []byte, error) {
	args := m.Called(ctx, documentID, userID, version, format)
	data, _ := args.Get(1).([]byte)
	return args.String(0), data, args.Error(2)
}

func (m *mockDocumentService) CurrentContent(ctx context.Context, documentID, userID uuid.UUID) (decision.Content, error) {
	args := m.Called(ctx, documentID, userID)
	c, _ := args.Get(0).(decision.Content)
	return c, args.Error(1)
}

func (m *mockDocumentService) CurrentRevision(ctx context.Context, documentID, userID uuid.UUID) (*models.DocumentRevision, error) {
	args := m.Called(ctx, documentID, userID)
	rev, _ := args.Get(0).(*models.DocumentRevision)
	return rev, args.Error(1)
}

func (m *mockDocumentService) RevisionByVersion(ctx context.Context, documentID, userID uuid.UUID, version int) (*models.DocumentRevision, error) {
	args := m.Called(ctx, documentID, userID, version)
	rev, _ := args.Get(0).(*models.DocumentRevision)
	return rev, args.Error(1)
}

func (m *mockDocumentService) ListRevisions(ctx context.Context, documentID, userID uuid.UUID) ([]models.DocumentRevision, error) {
	args := m.Called(ctx, documentID, userID)
	revs, _ := args.Get(0).([]models.DocumentRevision)
	return revs, args.Error(1)
}

func (m *mockDocumentService) SetCurrentRevision(ctx context.Context, documentID, userID uuid.UUID, version int) error {
	return m.Called(ctx, documentID, userID, version).Error(0)
}

// newDocRequest builds a request carrying an authenticated user and a chi
// route context with the document id parameter set.
func newDocRequest(method, target string, body []byte, userID uuid.UUID, docID uuid.UUID) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID.String())
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", docID.String())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) types.APIResponse {
	t.Helper()
	var out types.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSaveHandler(t *testing.T) {
	userID := uuid.New()
	docID := uuid.New()

	t.Run("cyclic graph is rejected with 422", func(t *testing.T) {
		svc := &mockDocumentService{}
		h := NewDocumentsHandler(svc)

		svc.On("SaveRevision", mock.Anything, docID, userID, mock.Anything).
			Return(nil, decision.ErrCircular).Once()

		body := []byte(`{
		  "nodes": [{"id": "a"}, {"id": "b"}],
		  "edges": [
		    {"id": "e1", "sourceId": "a", "targetId": "b"},
		    {"id": "e2", "sourceId": "b", "targetId": "a"}
		  ]
		}`)
		rec := httptest.NewRecorder()
		h.Save(rec, newDocRequest(http.MethodPut, "/api/v1/documents/"+docID.String(), body, userID, docID))

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		resp := decodeResponse(t, rec)
		require.False(t, resp.Success)
		require.Equal(t, "Circular dependencies detected", resp.Error.Message)
	})

	t.Run("valid graph returns the new revision", func(t *testing.T) {
		svc := &mockDocumentService{}
		h := NewDocumentsHandler(svc)

		svc.On("SaveRevision", mock.Anything, docID, userID, mock.MatchedBy(func(c decision.Content) bool {
			return len(c.Nodes) == 2 && len(c.Edges) == 1
		})).Return(&models.DocumentRevision{DocumentID: docID, Version: 4}, nil).Once()

		body := []byte(`{
		  "nodes": [{"id": "a"}, {"id": "b"}],
		  "edges": [{"id": "e1", "sourceId": "a", "targetId": "b"}]
		}`)
		rec := httptest.NewRecorder()
		h.Save(rec, newDocRequest(http.MethodPut, "/api/v1/documents/"+docID.String(), body, userID, docID))

		require.Equal(t, http.StatusCreated, rec.Code)
		mock.AssertExpectationsForObjects(t, svc)
	})

	t.Run("unauthenticated request is refused", func(t *testing.T) {
		svc := &mockDocumentService{}
		h := NewDocumentsHandler(svc)

		req := httptest.NewRequest(http.MethodPut, "/api/v1/documents/"+docID.String(), bytes.NewReader(nil))
		rec := httptest.NewRecorder()
		h.Save(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		svc.AssertNotCalled(t, "SaveRevision", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestImportHandler(t *testing.T) {
	userID := uuid.New()
	docID := uuid.New()

	t.Run("mistagged upload is a 400", func(t *testing.T) {
		svc := &mockDocumentService{}
		h := NewDocumentsHandler(svc)

		svc.On("Import", mock.Anything, docID, userID, mock.Anything).
			Return(nil, appErr.New(appErr.CodeFormat, "Invalid content type")).Once()

		rec := httptest.NewRecorder()
		h.Import(rec, newDocRequest(http.MethodPost, "/api/v1/documents/"+docID.String()+"/import",
			[]byte(`{"contentType": "application/json"}`), userID, docID))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeResponse(t, rec)
		require.Equal(t, "Invalid content type", resp.Error.Message)
	})

	t.Run("raw body upload is forwarded as-is", func(t *testing.T) {
		svc := &mockDocumentService{}
		h := NewDocumentsHandler(svc)

		payload := []byte(`{"contentType": "application/vnd.gorules.decision", "nodes": [], "edges": []}`)
		svc.On("Import", mock.Anything, docID, userID, payload).
			Return(&models.DocumentRevision{DocumentID: docID, Version: 1}, nil).Once()

		rec := httptest.NewRecorder()
		h.Import(rec, newDocRequest(http.MethodPost, "/api/v1/documents/"+docID.String()+"/import", payload, userID, docID))

		require.Equal(t, http.StatusCreated, rec.Code)
		mock.AssertExpectationsForObjects(t, svc)
	})
}

func TestExportHandler(t *testing.T) {
	userID := uuid.New()
	docID := uuid.New()

	t.Run("download carries an attachment disposition", func(t *testing.T) {
		svc := &mockDocumentService{}
		h := NewDocumentsHandler(svc)

		data := []byte(`{"contentType": "application/vnd.gorules.decision", "nodes": [], "edges": []}`)
		svc.On("Export", mock.Anything, docID, userID, 0, "").
			Return("Pricing Rules.json", data, nil).Once()

		rec := httptest.NewRecorder()
		h.Export(rec, newDocRequest(http.MethodGet, "/api/v1/documents/"+docID.String()+"/export", nil, userID, docID))

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, `attachment; filename="Pricing Rules.json"`, rec.Header().Get("Content-Disposition"))
		require.Equal(t, data, rec.Body.Bytes())
	})

	t.Run("unsupported format maps to 501", func(t *testing.T) {
		svc := &mockDocumentService{}
		h := NewDocumentsHandler(svc)

		svc.On("Export", mock.Anything, docID, userID, 0, "yaml").
			Return("", nil, appErr.New(appErr.CodeUnsupported, `export format "yaml" not supported`)).Once()

		rec := httptest.NewRecorder()
		h.Export(rec, newDocRequest(http.MethodGet, "/api/v1/documents/"+docID.String()+"/export?format=yaml", nil, userID, docID))

		require.Equal(t, http.StatusNotImplemented, rec.Code)
	})
}

func TestApplyTemplateHandler(t *testing.T) {
	userID := uuid.New()
	docID := uuid.New()

	t.Run("unknown key reports applied false", func(t *testing.T) {
		svc := &mockDocumentService{}
		h := NewDocumentsHandler(svc)

		svc.On("ApplyTemplate", mock.Anything, docID, userID, "no-such-template").
			Return(nil, false, nil).Once()

		rec := httptest.NewRecorder()
		h.ApplyTemplate(rec, newDocRequest(http.MethodPost, "/api/v1/documents/"+docID.String()+"/template",
			[]byte(`{"template": "no-such-template"}`), userID, docID))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeResponse(t, rec)
		require.True(t, resp.Success)
		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		require.Equal(t, false, data["applied"])
	})

	t.Run("known key returns the seeded revision", func(t *testing.T) {
		svc := &mockDocumentService{}
		h := NewDocumentsHandler(svc)

		svc.On("ApplyTemplate", mock.Anything, docID, userID, "shipping-fees").
			Return(&models.DocumentRevision{DocumentID: docID, Version: 2}, true, nil).Once()

		rec := httptest.NewRecorder()
		h.ApplyTemplate(rec, newDocRequest(http.MethodPost, "/api/v1/documents/"+docID.String()+"/template",
			[]byte(`{"template": "shipping-fees"}`), userID, docID))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeResponse(t, rec)
		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		require.Equal(t, true, data["applied"])
	})
}
