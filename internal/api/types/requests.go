package types

import "encoding/json"

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type DocumentCreateRequest struct {
	Name     string `json:"name" validate:"required"`
	Template string `json:"template"`
}

type DocumentRenameRequest struct {
	Name string `json:"name" validate:"required"`
}

type DocumentSaveRequest struct {
	Nodes json.RawMessage `json:"nodes"`
	Edges json.RawMessage `json:"edges"`
}

type TemplateApplyRequest struct {
	Template string `json:"template" validate:"required"`
}

type SetCurrentRequest struct {
	Version int `json:"version" validate:"gte=1"`
}

type SimulateRequest struct {
	Context json.RawMessage `json:"context"`
}
