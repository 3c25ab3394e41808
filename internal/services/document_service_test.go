package services

import (
	"bytes"
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/loocor/rules-editor/internal/decision"
	"github.com/loocor/rules-editor/internal/models"
	appErr "github.com/loocor/rules-editor/pkg/errors"
	"github.com/loocor/rules-editor/pkg/logger"
)

func TestMain(m *testing.M) {
	_, err := logger.Init("info", "json")
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type mockDocumentRepository struct {
	mock.Mock
}

func (m *mockDocumentRepository) Create(ctx context.Context, obj *models.Document) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockDocumentRepository) GetByID(ctx context.Context, id any, dest *models.Document) error {
	args := m.Called(ctx, id, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		src := args.Get(1).(*models.Document)
		*dest = *src
	}
	return args.Error(0)
}

func (m *mockDocumentRepository) Update(ctx context.Context, obj *models.Document) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *mockDocumentRepository) Delete(ctx context.Context, id any) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockDocumentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Document, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]models.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDocumentRepository) CreateRevision(ctx context.Context, rev *models.DocumentRevision) error {
	args := m.Called(ctx, rev)
	return args.Error(0)
}

func (m *mockDocumentRepository) CurrentRevision(ctx context.Context, documentID uuid.UUID, dest *models.DocumentRevision) error {
	args := m.Called(ctx, documentID, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		src := args.Get(1).(*models.DocumentRevision)
		*dest = *src
	}
	return args.Error(0)
}

func (m *mockDocumentRepository) RevisionByVersion(ctx context.Context, documentID uuid.UUID, version int, dest *models.DocumentRevision) error {
	args := m.Called(ctx, documentID, version, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		src := args.Get(1).(*models.DocumentRevision)
		*dest = *src
	}
	return args.Error(0)
}

func (m *mockDocumentRepository) RevisionByID(ctx context.Context, revisionID uuid.UUID, dest *models.DocumentRevision) error {
	args := m.Called(ctx, revisionID, dest)
	if args.Error(0) == nil && args.Get(1) != nil {
		src := args.Get(1).(*models.DocumentRevision)
		*dest = *src
	}
	return args.Error(0)
}

func (m *mockDocumentRepository) ListRevisions(ctx context.Context, documentID uuid.UUID) ([]models.DocumentRevision, error) {
	args := m.Called(ctx, documentID)
	if v := args.Get(0); v != nil {
		return v.([]models.DocumentRevision), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDocumentRepository) SetCurrent(ctx context.Context, documentID uuid.UUID, version int) error {
	args := m.Called(ctx, documentID, version)
	return args.Error(0)
}

func ownedDoc(docID, userID uuid.UUID) *models.Document {
	return &models.Document{ID: docID, UserID: userID, Name: "Shipping Rules"}
}

func acyclicContent() decision.Content {
	c, err := decision.Decode([]byte(`{
	  "contentType": "application/vnd.gorules.decision",
	  "nodes": [{"id": "a"}, {"id": "b"}],
	  "edges": [{"id": "e1", "sourceId": "a", "targetId": "b"}]
	}`))
	if err != nil {
		panic(err)
	}
	return c
}

func cyclicContent() decision.Content {
	return decision.Content{
		Nodes: []decision.Node{{ID: "a"}, {ID: "b"}},
		Edges: []decision.Edge{
			{ID: "e1", SourceID: "a", TargetID: "b"},
			{ID: "e2", SourceID: "b", TargetID: "a"},
		},
	}
}

func TestSaveRevisionRunsCycleCheck(t *testing.T) {
	docID := uuid.New()
	userID := uuid.New()

	t.Run("acyclic graph is persisted", func(t *testing.T) {
		repo := &mockDocumentRepository{}
		svc := NewDocumentService(repo)

		repo.On("GetByID", mock.Anything, docID, &models.Document{}).Return(nil, ownedDoc(docID, userID)).Once()
		repo.On("CreateRevision", mock.Anything, mock.MatchedBy(func(rev *models.DocumentRevision) bool {
			return rev.DocumentID == docID && rev.Checksum != ""
		})).Return(nil).Once()

		rev, err := svc.SaveRevision(context.Background(), docID, userID, acyclicContent())
		require.NoError(t, err)
		require.NotNil(t, rev)
		mock.AssertExpectationsForObjects(t, repo)
	})

	t.Run("cyclic graph never reaches the store", func(t *testing.T) {
		repo := &mockDocumentRepository{}
		svc := NewDocumentService(repo)

		repo.On("GetByID", mock.Anything, docID, &models.Document{}).Return(nil, ownedDoc(docID, userID)).Once()

		_, err := svc.SaveRevision(context.Background(), docID, userID, cyclicContent())
		require.Error(t, err)
		require.True(t, appErr.IsCode(err, appErr.CodeValidation))
		repo.AssertNotCalled(t, "CreateRevision", mock.Anything, mock.Anything)
	})

	t.Run("foreign document is rejected", func(t *testing.T) {
		repo := &mockDocumentRepository{}
		svc := NewDocumentService(repo)

		repo.On("GetByID", mock.Anything, docID, &models.Document{}).Return(nil, ownedDoc(docID, uuid.New())).Once()

		_, err := svc.SaveRevision(context.Background(), docID, userID, acyclicContent())
		require.True(t, appErr.IsCode(err, appErr.CodeUnauthorized))
		repo.AssertNotCalled(t, "CreateRevision", mock.Anything, mock.Anything)
	})
}

func TestImport(t *testing.T) {
	docID := uuid.New()
	userID := uuid.New()

	t.Run("dangling edges are dropped and the rest saved", func(t *testing.T) {
		repo := &mockDocumentRepository{}
		svc := NewDocumentService(repo)

		repo.On("GetByID", mock.Anything, docID, &models.Document{}).Return(nil, ownedDoc(docID, userID)).Once()
		repo.On("CreateRevision", mock.Anything, mock.MatchedBy(func(rev *models.DocumentRevision) bool {
			// ghost edge must be gone from the stored edges column
			return rev.DocumentID == docID && !bytes.Contains(rev.Edges, []byte("ghost"))
		})).Return(nil).Once()

		payload := []byte(`{
		  "contentType": "application/vnd.gorules.decision",
		  "nodes": [{"id": "a"}, {"id": "b"}],
		  "edges": [
		    {"id": "e1", "sourceId": "a", "targetId": "b"},
		    {"id": "e2", "sourceId": "a", "targetId": "ghost"}
		  ]
		}`)
		_, err := svc.Import(context.Background(), docID, userID, payload)
		require.NoError(t, err)
		mock.AssertExpectationsForObjects(t, repo)
	})

	t.Run("wrong content type leaves the store untouched", func(t *testing.T) {
		repo := &mockDocumentRepository{}
		svc := NewDocumentService(repo)

		repo.On("GetByID", mock.Anything, docID, &models.Document{}).Return(nil, ownedDoc(docID, userID)).Once()

		_, err := svc.Import(context.Background(), docID, userID, []byte(`{"contentType": "application/json"}`))
		require.True(t, appErr.IsCode(err, appErr.CodeFormat))
		repo.AssertNotCalled(t, "CreateRevision", mock.Anything, mock.Anything)
	})

	t.Run("cyclic import leaves the store untouched", func(t *testing.T) {
		repo := &mockDocumentRepository{}
		svc := NewDocumentService(repo)

		repo.On("GetByID", mock.Anything, docID, &models.Document{}).Return(nil, ownedDoc(docID, userID)).Once()

		payload := []byte(`{
		  "contentType": "application/vnd.gorules.decision",
		  "nodes": [{"id": "a"}, {"id": "b"}],
		  "edges": [
		    {"id": "e1", "sourceId": "a", "targetId": "b"},
		    {"id": "e2", "sourceId": "b", "targetId": "a"}
		  ]
		}`)
		_, err := svc.Import(context.Background(), docID, userID, payload)
		require.True(t, appErr.IsCode(err, appErr.CodeValidation))
		repo.AssertNotCalled(t, "CreateRevision", mock.Anything, mock.Anything)
	})
}

func TestExport(t *testing.T) {
	docID := uuid.New()
	userID := uuid.New()

	t.Run("unsupported format", func(t *testing.T) {
		repo := &mockDocumentRepository{}
		svc := NewDocumentService(repo)

		_, _, err := svc.Export(context.Background(), docID, userID, 0, "yaml")
		require.True(t, appErr.IsCode(err, appErr.CodeUnsupported))
		repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("current revision as tagged envelope", func(t *testing.T) {
		repo := &mockDocumentRepository{}
		svc := NewDocumentService(repo)

		rev := &models.DocumentRevision{
			DocumentID: docID,
			Version:    3,
			Nodes:      []byte(`[{"id": "a"}, {"id": "b"}]`),
			Edges:      []byte(`[{"id": "e1", "sourceId": "a", "targetId": "b"}]`),
			IsCurrent:  true,
		}
		repo.On("GetByID", mock.Anything, docID, &models.Document{}).Return(nil, ownedDoc(docID, userID)).Once()
		repo.On("CurrentRevision", mock.Anything, docID, &models.DocumentRevision{}).Return(nil, rev).Once()

		filename, data, err := svc.Export(context.Background(), docID, userID, 0, "json")
		require.NoError(t, err)
		require.Equal(t, "Shipping Rules.json", filename)

		parsed, err := decision.Decode(data)
		require.NoError(t, err)
		require.Len(t, parsed.Nodes, 2)
		require.Len(t, parsed.Edges, 1)
	})
}

func TestApplyTemplate(t *testing.T) {
	docID := uuid.New()
	userID := uuid.New()

	t.Run("known key replaces the graph", func(t *testing.T) {
		repo := &mockDocumentRepository{}
		svc := NewDocumentService(repo)

		repo.On("GetByID", mock.Anything, docID, &models.Document{}).Return(nil, ownedDoc(docID, userID)).Once()
		repo.On("CreateRevision", mock.Anything, mock.Anything).Return(nil).Once()

		rev, applied, err := svc.ApplyTemplate(context.Background(), docID, userID, "shipping-fees")
		require.NoError(t, err)
		require.True(t, applied)
		require.NotNil(t, rev)
		mock.AssertExpectationsForObjects(t, repo)
	})

	t.Run("unknown key is a no-op", func(t *testing.T) {
		repo := &mockDocumentRepository{}
		svc := NewDocumentService(repo)

		repo.On("GetByID", mock.Anything, docID, &models.Document{}).Return(nil, ownedDoc(docID, userID)).Once()

		rev, applied, err := svc.ApplyTemplate(context.Background(), docID, userID, "no-such-template")
		require.NoError(t, err)
		require.False(t, applied)
		require.Nil(t, rev)
		repo.AssertNotCalled(t, "CreateRevision", mock.Anything, mock.Anything)
	})
}

func TestCurrentContentDefaultsEmpty(t *testing.T) {
	docID := uuid.New()
	userID := uuid.New()

	repo := &mockDocumentRepository{}
	svc := NewDocumentService(repo)

	repo.On("GetByID", mock.Anything, docID, &models.Document{}).Return(nil, ownedDoc(docID, userID)).Once()
	repo.On("CurrentRevision", mock.Anything, docID, &models.DocumentRevision{}).
		Return(appErr.New(appErr.CodeNotFound, "no current revision found"), nil).Once()

	c, err := svc.CurrentContent(context.Background(), docID, userID)
	require.NoError(t, err)
	require.Empty(t, c.Nodes)
	require.Empty(t, c.Edges)
}
