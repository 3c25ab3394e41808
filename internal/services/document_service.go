package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/loocor/rules-editor/internal/decision"
	"github.com/loocor/rules-editor/internal/models"
	"github.com/loocor/rules-editor/internal/repository"
	"github.com/loocor/rules-editor/internal/templates"
	appErr "github.com/loocor/rules-editor/pkg/errors"
	"github.com/loocor/rules-editor/pkg/logger"
	"github.com/loocor/rules-editor/pkg/utils"
)

// DocumentService owns the decision-graph document lifecycle: create, save
// revisions, import, export, and template seeding. Every persistence path
// runs the cycle check first; a cyclic graph never reaches the store.
type DocumentService interface {
	CreateDocument(ctx context.Context, userID uuid.UUID, name string) (*models.Document, error)
	// CreateFromTemplate seeds a new document from the named template. An
	// unknown key still creates the document, just without an initial
	// revision; the applied flag reports which happened.
	CreateFromTemplate(ctx context.Context, userID uuid.UUID, name, key string) (*models.Document, bool, error)
	GetDocument(ctx context.Context, documentID, userID uuid.UUID) (*models.Document, error)
	ListDocuments(ctx context.Context, userID uuid.UUID) ([]models.Document, error)
	RenameDocument(ctx context.Context, documentID, userID uuid.UUID, name string) (*models.Document, error)
	DeleteDocument(ctx context.Context, documentID, userID uuid.UUID) error

	// ApplyTemplate replaces the document's graph with the named template as
	// a new revision. An unknown key is a no-op: no error, no new revision.
	ApplyTemplate(ctx context.Context, documentID, userID uuid.UUID, key string) (*models.DocumentRevision, bool, error)

	SaveRevision(ctx context.Context, documentID, userID uuid.UUID, content decision.Content) (*models.DocumentRevision, error)
	Import(ctx context.Context, documentID, userID uuid.UUID, payload []byte) (*models.DocumentRevision, error)
	Export(ctx context.Context, documentID, userID uuid.UUID, version int, format string) (string, []byte, error)

	CurrentContent(ctx context.Context, documentID, userID uuid.UUID) (decision.Content, error)
	CurrentRevision(ctx context.Context, documentID, userID uuid.UUID) (*models.DocumentRevision, error)
	RevisionByVersion(ctx context.Context, documentID, userID uuid.UUID, version int) (*models.DocumentRevision, error)
	ListRevisions(ctx context.Context, documentID, userID uuid.UUID) ([]models.DocumentRevision, error)
	SetCurrentRevision(ctx context.Context, documentID, userID uuid.UUID, version int) error
}

type documentService struct {
	docRepo repository.DocumentRepository
}

func NewDocumentService(docRepo repository.DocumentRepository) DocumentService {
	return &documentService{docRepo: docRepo}
}

var _ DocumentService = (*documentService)(nil)

func (s *documentService) CreateDocument(ctx context.Context, userID uuid.UUID, name string) (*models.Document, error) {
	d := &models.Document{UserID: userID, Name: name}
	if err := s.docRepo.Create(ctx, d); err != nil {
		return nil, err
	}
	logger.L().Info("document created", zap.String("document_id", d.ID.String()), zap.String("user_id", userID.String()))
	return d, nil
}

func (s *documentService) CreateFromTemplate(ctx context.Context, userID uuid.UUID, name, key string) (*models.Document, bool, error) {
	d, err := s.CreateDocument(ctx, userID, name)
	if err != nil {
		return nil, false, err
	}

	content, ok := templates.Lookup(key)
	if !ok {
		logger.L().Info("unknown template key, document left empty", zap.String("key", key))
		return d, false, nil
	}

	if _, err := s.saveRevision(ctx, d.ID, content); err != nil {
		return nil, false, err
	}
	return d, true, nil
}

func (s *documentService) GetDocument(ctx context.Context, documentID, userID uuid.UUID) (*models.Document, error) {
	return s.ownedDocument(ctx, documentID, userID)
}

func (s *documentService) ListDocuments(ctx context.Context, userID uuid.UUID) ([]models.Document, error) {
	return s.docRepo.ListByUser(ctx, userID)
}

func (s *documentService) RenameDocument(ctx context.Context, documentID, userID uuid.UUID, name string) (*models.Document, error) {
	d, err := s.ownedDocument(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	d.Name = name
	if err := s.docRepo.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *documentService) DeleteDocument(ctx context.Context, documentID, userID uuid.UUID) error {
	if _, err := s.ownedDocument(ctx, documentID, userID); err != nil {
		return err
	}
	if err := s.docRepo.Delete(ctx, documentID); err != nil {
		return err
	}
	logger.L().Info("document deleted", zap.String("document_id", documentID.String()))
	return nil
}

func (s *documentService) ApplyTemplate(ctx context.Context, documentID, userID uuid.UUID, key string) (*models.DocumentRevision, bool, error) {
	if _, err := s.ownedDocument(ctx, documentID, userID); err != nil {
		return nil, false, err
	}

	content, ok := templates.Lookup(key)
	if !ok {
		return nil, false, nil
	}

	rev, err := s.saveRevision(ctx, documentID, content)
	if err != nil {
		return nil, false, err
	}
	return rev, true, nil
}

func (s *documentService) SaveRevision(ctx context.Context, documentID, userID uuid.UUID, content decision.Content) (*models.DocumentRevision, error) {
	if _, err := s.ownedDocument(ctx, documentID, userID); err != nil {
		return nil, err
	}
	return s.saveRevision(ctx, documentID, content)
}

func (s *documentService) Import(ctx context.Context, documentID, userID uuid.UUID, payload []byte) (*models.DocumentRevision, error) {
	if _, err := s.ownedDocument(ctx, documentID, userID); err != nil {
		return nil, err
	}

	// Strict decode: tag check, defaulting, dangling-edge filter. A failed
	// decode or a cyclic graph leaves the stored document unchanged.
	content, err := decision.Decode(payload)
	if err != nil {
		return nil, err
	}
	return s.saveRevision(ctx, documentID, content)
}

func (s *documentService) Export(ctx context.Context, documentID, userID uuid.UUID, version int, format string) (string, []byte, error) {
	if format != "" && format != "json" {
		return "", nil, appErr.New(appErr.CodeUnsupported, fmt.Sprintf("export format %q not supported", format))
	}

	d, err := s.ownedDocument(ctx, documentID, userID)
	if err != nil {
		return "", nil, err
	}

	var rev models.DocumentRevision
	if version > 0 {
		err = s.docRepo.RevisionByVersion(ctx, documentID, version, &rev)
	} else {
		err = s.docRepo.CurrentRevision(ctx, documentID, &rev)
	}
	if err != nil {
		return "", nil, err
	}

	content, err := decision.ContentFromColumns(rev.Nodes, rev.Edges)
	if err != nil {
		return "", nil, err
	}
	if err := decision.ValidateAcyclic(content); err != nil {
		return "", nil, err
	}

	data, err := decision.Encode(content)
	if err != nil {
		return "", nil, err
	}
	return exportFilename(d.Name), data, nil
}

func (s *documentService) CurrentContent(ctx context.Context, documentID, userID uuid.UUID) (decision.Content, error) {
	rev, err := s.CurrentRevision(ctx, documentID, userID)
	if err != nil {
		// A document with no revisions yet is an empty graph.
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return decision.Content{Nodes: []decision.Node{}, Edges: []decision.Edge{}}, nil
		}
		return decision.Content{}, err
	}
	return decision.ContentFromColumns(rev.Nodes, rev.Edges)
}

func (s *documentService) CurrentRevision(ctx context.Context, documentID, userID uuid.UUID) (*models.DocumentRevision, error) {
	if _, err := s.ownedDocument(ctx, documentID, userID); err != nil {
		return nil, err
	}
	var rev models.DocumentRevision
	if err := s.docRepo.CurrentRevision(ctx, documentID, &rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

func (s *documentService) RevisionByVersion(ctx context.Context, documentID, userID uuid.UUID, version int) (*models.DocumentRevision, error) {
	if _, err := s.ownedDocument(ctx, documentID, userID); err != nil {
		return nil, err
	}
	var rev models.DocumentRevision
	if err := s.docRepo.RevisionByVersion(ctx, documentID, version, &rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

func (s *documentService) ListRevisions(ctx context.Context, documentID, userID uuid.UUID) ([]models.DocumentRevision, error) {
	if _, err := s.ownedDocument(ctx, documentID, userID); err != nil {
		return nil, err
	}
	return s.docRepo.ListRevisions(ctx, documentID)
}

func (s *documentService) SetCurrentRevision(ctx context.Context, documentID, userID uuid.UUID, version int) error {
	if _, err := s.ownedDocument(ctx, documentID, userID); err != nil {
		return err
	}
	return s.docRepo.SetCurrent(ctx, documentID, version)
}

// saveRevision runs the acyclicity precondition and writes a new current
// revision. Callers have already checked ownership.
func (s *documentService) saveRevision(ctx context.Context, documentID uuid.UUID, content decision.Content) (*models.DocumentRevision, error) {
	if err := decision.ValidateAcyclic(content); err != nil {
		return nil, err
	}

	envelope, err := decision.Encode(content)
	if err != nil {
		return nil, err
	}

	nodes, err := json.Marshal(content.Nodes)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "marshal nodes failed")
	}
	edges, err := json.Marshal(content.Edges)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "marshal edges failed")
	}

	rev := &models.DocumentRevision{
		DocumentID: documentID,
		Nodes:      datatypes.JSON(nodes),
		Edges:      datatypes.JSON(edges),
		Checksum:   utils.SumSHA256(envelope),
	}
	if err := s.docRepo.CreateRevision(ctx, rev); err != nil {
		return nil, err
	}

	logger.L().Info("revision saved",
		zap.String("document_id", documentID.String()),
		zap.Int("version", rev.Version),
		zap.Int("nodes", len(content.Nodes)),
		zap.Int("edges", len(content.Edges)),
	)
	return rev, nil
}

func (s *documentService) ownedDocument(ctx context.Context, documentID, userID uuid.UUID) (*models.Document, error) {
	var d models.Document
	if err := s.docRepo.GetByID(ctx, documentID, &d); err != nil {
		return nil, err
	}
	if d.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own document")
	}
	return &d, nil
}

func exportFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "decision"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, name)
	return name + ".json"
}
