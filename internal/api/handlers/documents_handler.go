package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/loocor/rules-editor/internal/api/types"
	"github.com/loocor/rules-editor/internal/decision"
	"github.com/loocor/rules-editor/internal/services"
	"github.com/loocor/rules-editor/internal/templates"
)

// uploads are whole decision documents; anything bigger is not a graph
const maxUploadBytes = 8 << 20

type DocumentsHandler struct {
	svc services.DocumentService
}

func NewDocumentsHandler(svc services.DocumentService) *DocumentsHandler {
	return &DocumentsHandler{svc: svc}
}

func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	items, err := h.svc.ListDocuments(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: items})
}

func (h *DocumentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	var req types.DocumentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" {
		writeErrorStr(w, http.StatusBadRequest, "name is required")
		return
	}

	if req.Template != "" {
		d, applied, err := h.svc.CreateFromTemplate(r.Context(), userID, req.Name, req.Template)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, types.APIResponse{
			Success: true,
			Data:    map[string]any{"document": d, "template_applied": applied},
		})
		return
	}

	d, err := h.svc.CreateDocument(r.Context(), userID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: d})
}

func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	d, err := h.svc.GetDocument(r.Context(), docID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: d})
}

func (h *DocumentsHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req types.DocumentRenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Name == "" {
		writeErrorStr(w, http.StatusBadRequest, "name is required")
		return
	}
	d, err := h.svc.RenameDocument(r.Context(), docID, userID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: d})
}

func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.svc.DeleteDocument(r.Context(), docID, userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Save persists the editor's in-memory graph as a new current revision. The
// cycle check runs inside the service before anything touches the store.
func (h *DocumentsHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req types.DocumentSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	content, err := decision.ContentFromColumns(req.Nodes, req.Edges)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid nodes or edges")
		return
	}
	rev, err := h.svc.SaveRevision(r.Context(), docID, userID, content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: rev})
}

func (h *DocumentsHandler) CurrentRevision(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	rev, err := h.svc.CurrentRevision(r.Context(), docID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: rev})
}

func (h *DocumentsHandler) GetRevision(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		writeErrorStr(w, http.StatusBadRequest, "invalid version")
		return
	}
	rev, err := h.svc.RevisionByVersion(r.Context(), docID, userID, version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: rev})
}

func (h *DocumentsHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	revs, err := h.svc.ListRevisions(r.Context(), docID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: revs})
}

func (h *DocumentsHandler) SetCurrent(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req types.SetCurrentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Version < 1 {
		writeErrorStr(w, http.StatusBadRequest, "invalid version")
		return
	}
	if err := h.svc.SetCurrentRevision(r.Context(), docID, userID, req.Version); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Import ingests an uploaded document envelope, either as a multipart "file"
// part or as the raw request body.
func (h *DocumentsHandler) Import(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	payload, err := readUpload(r)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "unreadable upload")
		return
	}

	rev, err := h.svc.Import(r.Context(), docID, userID, payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: rev})
}

func (h *DocumentsHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	version := 0
	if v := r.URL.Query().Get("version"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeErrorStr(w, http.StatusBadRequest, "invalid version")
			return
		}
		version = n
	}
	format := r.URL.Query().Get("format")

	filename, data, err := h.svc.Export(r.Context(), docID, userID, version, format)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *DocumentsHandler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req types.TemplateApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}

	rev, applied, err := h.svc.ApplyTemplate(r.Context(), docID, userID, req.Template)
	if err != nil {
		writeError(w, err)
		return
	}
	// Unknown template key: nothing changed, nothing failed.
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    map[string]any{"applied": applied, "revision": rev},
	})
}

func (h *DocumentsHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: templates.Keys()})
}

func readUpload(r *http.Request) ([]byte, error) {
	ct := r.Header.Get("Content-Type")
	if len(ct) >= 9 && ct[:9] == "multipart" {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return nil, err
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxUploadBytes))
	}
	return io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
}
