package api

import (
	"github.com/starford/corkboard/internal/ai"
	"github.com/starford/corkboard/internal/board"
	"github.com/starford/corkboard/internal/boardservice"
	"github.com/starford/corkboard/internal/dashboard"
	"github.com/starford/corkboard/internal/workspace"
)

// LoginRequest is the request body for signing in.
type LoginRequest struct {
	Email    string `json:"email" example:"ada@example.com" validate:"required"`
	Name     string `json:"name" example:"Ada"`
	Avatar   string `json:"avatar,omitempty" example:"https://example.com/ada.png"`
	GoogleID string `json:"googleId,omitempty"`
}

// UpdateUserRequest is the request body for a profile change. Empty fields
// are left unchanged.
type UpdateUserRequest struct {
	Name        string                `json:"name,omitempty" example:"Ada L."`
	Avatar      string                `json:"avatar,omitempty"`
	Preferences workspace.Preferences `json:"preferences"`
}

// User is the account response type (aliased from the domain layer).
type User = workspace.User

// SaveWorkspaceRequest carries the full item collection.
type SaveWorkspaceRequest struct {
	Items []board.Item `json:"items" validate:"required"`
}

// SaveWorkspaceResponse acknowledges a save.
type SaveWorkspaceResponse struct {
	Success     bool   `json:"success" example:"true" validate:"required"`
	Checksum    string `json:"checksum" example:"9f86d081..."`
	LastUpdated string `json:"lastUpdated" example:"2026-03-01T10:00:00Z"`
}

// WorkspaceDetail is the stored board (aliased from the domain layer).
type WorkspaceDetail = boardservice.WorkspaceDetail

// AnalysisResponse carries the model's HTML summary.
type AnalysisResponse struct {
	Analysis string `json:"analysis" example:"<b>Busy week</b>" validate:"required"`
}

// AdviceResponse carries the model's expense advice.
type AdviceResponse struct {
	Advice string `json:"advice" example:"AI Busy." validate:"required"`
}

// ClassifyRequest is free text to turn into a task.
type ClassifyRequest struct {
	Text string `json:"text" example:"Buy toner before Friday, urgent" validate:"required"`
}

// Suggestion is a proposed task (aliased from the domain layer).
type Suggestion = ai.Suggestion

// StatsResponse is the dashboard aggregate (aliased from the domain layer).
type StatsResponse = dashboard.Summary

// ShareResponse is the share stub reply (aliased from the domain layer).
type ShareResponse = boardservice.ShareLink
