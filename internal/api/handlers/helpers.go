package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/loocor/rules-editor/internal/api/middleware"
	"github.com/loocor/rules-editor/internal/api/types"
	appErr "github.com/loocor/rules-editor/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, types.StatusFor(err), types.APIResponse{Success: false, Error: types.FromAppError(err)})
}

func writeErrorStr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.APIResponse{Success: false, Error: &types.APIError{Code: string(appErr.CodeInvalid), Message: msg}})
}

// authedUser extracts the authenticated user id placed in context by the auth
// middleware. A missing or malformed id means the request never passed auth.
func authedUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	uid, err := uuid.Parse(middleware.GetUserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, types.APIResponse{
			Success: false,
			Error:   &types.APIError{Code: string(appErr.CodeUnauthorized), Message: "not authenticated"},
		})
		return uuid.Nil, false
	}
	return uid, true
}

func pathUUID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		writeErrorStr(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
