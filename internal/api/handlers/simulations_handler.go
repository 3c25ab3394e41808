package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/loocor/rules-editor/internal/api/types"
	"github.com/loocor/rules-editor/internal/services"
)

type SimulationsHandler struct {
	svc services.SimulationService
}

func NewSimulationsHandler(svc services.SimulationService) *SimulationsHandler {
	return &SimulationsHandler{svc: svc}
}

// Simulate runs the document's current revision synchronously and passes the
// engine's result through unchanged.
func (h *SimulationsHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req types.SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}

	result, err := h.svc.Run(r.Context(), docID, userID, req.Context)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: result})
}

func (h *SimulationsHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	var req types.SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid json")
		return
	}

	run, err := h.svc.Enqueue(r.Context(), docID, userID, req.Context)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.APIResponse{Success: true, Data: run})
}

func (h *SimulationsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	runs, err := h.svc.ListRuns(r.Context(), docID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: runs})
}

func (h *SimulationsHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	userID, ok := authedUser(w, r)
	if !ok {
		return
	}
	runID, ok := pathUUID(w, chi.URLParam(r, "runID"))
	if !ok {
		return
	}
	run, err := h.svc.GetRun(r.Context(), runID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: run})
}
