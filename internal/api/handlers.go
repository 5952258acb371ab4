package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/corkboard/internal/boardservice"
	"github.com/starford/corkboard/internal/checksum"
	"github.com/starford/corkboard/internal/workspace"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *boardservice.Service
	events http.Handler
}

// NewHandler creates a new Handler. events may be nil.
func NewHandler(svc *boardservice.Service, events http.Handler) *Handler {
	return &Handler{svc: svc, events: events}
}

// Login handles POST /api/login.
//
//	@Summary		Sign in, creating the account on first use
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LoginRequest	true	"Identity"
//	@Success		200		{object}	User
//	@Failure		400		{object}	errResponse
//	@Failure		403		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sub := Subject(r.Context())
	u, err := h.svc.Login(r.Context(), workspace.User{
		ID:       sub,
		Email:    req.Email,
		Name:     req.Name,
		Avatar:   req.Avatar,
		GoogleID: req.GoogleID,
	})
	if err != nil {
		writeError(w, "login", err)
		return
	}
	if !ownerOnly(w, r, u.ID) {
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateUser handles PUT /api/users/{userId}.
//
//	@Summary		Update profile and theme
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Param			userId	path		string				true	"User id"
//	@Param			body	body		UpdateUserRequest	true	"Changes"
//	@Success		200		{object}	User
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/users/{userId} [put]
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !ownerOnly(w, r, userID) {
		return
	}
	var req UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.UpdateUser(r.Context(), workspace.User{
		ID:          userID,
		Name:        req.Name,
		Avatar:      req.Avatar,
		Preferences: req.Preferences,
	})
	if err != nil {
		writeError(w, "update user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// GetWorkspace handles GET /api/workspace/{userId}.
//
//	@Summary		Get a user's board
//	@Tags			workspace
//	@Produce		json
//	@Param			userId			path		string	true	"User id"
//	@Param			If-None-Match	header		string	false	"Checksum of a cached copy"
//	@Success		200				{object}	WorkspaceDetail
//	@Success		304				"Not modified"
//	@Security		BearerAuth
//	@Router			/workspace/{userId} [get]
func (h *Handler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !ownerOnly(w, r, userID) {
		return
	}
	ws, err := h.svc.GetWorkspace(r.Context(), userID)
	if err != nil {
		writeError(w, "get workspace", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(ws.Checksum))
	if inm := r.Header.Get("If-None-Match"); inm != "" && checksum.Matches(inm, ws.Checksum) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

// SaveWorkspace handles POST /api/workspace/{userId}.
//
//	@Summary		Replace a user's board (last write wins)
//	@Tags			workspace
//	@Accept			json
//	@Produce		json
//	@Param			userId	path		string					true	"User id"
//	@Param			body	body		SaveWorkspaceRequest	true	"Items"
//	@Success		200		{object}	SaveWorkspaceResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/workspace/{userId} [post]
func (h *Handler) SaveWorkspace(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !ownerOnly(w, r, userID) {
		return
	}
	var req SaveWorkspaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ws, err := h.svc.SaveWorkspace(r.Context(), userID, req.Items)
	if err != nil {
		writeError(w, "save workspace", err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(ws.Checksum))
	writeJSON(w, http.StatusOK, SaveWorkspaceResponse{
		Success:     true,
		Checksum:    ws.Checksum,
		LastUpdated: ws.LastUpdated.Format(time.RFC3339),
	})
}

// ExportPNG handles GET /api/workspace/{userId}/export.png.
//
//	@Summary		Render the board as PNG
//	@Tags			workspace
//	@Produce		png
//	@Param			userId	path	string	true	"User id"
//	@Success		200		{file}	binary
//	@Security		BearerAuth
//	@Router			/workspace/{userId}/export.png [get]
func (h *Handler) ExportPNG(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !ownerOnly(w, r, userID) {
		return
	}
	var buf bytes.Buffer
	if err := h.svc.Export(r.Context(), userID, &buf); err != nil {
		writeError(w, "export", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("export write failed", slog.String("user", userID), slog.String("error", err.Error()))
	}
}

// Analyze handles POST /api/workspace/{userId}/analyze.
//
//	@Summary		Summarise the board with the AI model
//	@Tags			ai
//	@Produce		json
//	@Param			userId	path		string	true	"User id"
//	@Success		200		{object}	AnalysisResponse
//	@Security		BearerAuth
//	@Router			/workspace/{userId}/analyze [post]
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !ownerOnly(w, r, userID) {
		return
	}
	text, err := h.svc.Analyze(r.Context(), userID)
	if err != nil {
		writeError(w, "analyze", err)
		return
	}
	writeJSON(w, http.StatusOK, AnalysisResponse{Analysis: text})
}

// Advice handles POST /api/workspace/{userId}/advice.
//
//	@Summary		Expense advice from the AI model
//	@Tags			ai
//	@Produce		json
//	@Param			userId	path		string	true	"User id"
//	@Success		200		{object}	AdviceResponse
//	@Security		BearerAuth
//	@Router			/workspace/{userId}/advice [post]
func (h *Handler) Advice(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !ownerOnly(w, r, userID) {
		return
	}
	text, err := h.svc.Advice(r.Context(), userID)
	if err != nil {
		writeError(w, "advice", err)
		return
	}
	writeJSON(w, http.StatusOK, AdviceResponse{Advice: text})
}

// Stats handles GET /api/workspace/{userId}/stats.
//
//	@Summary		Task and expense aggregates for the dashboard
//	@Tags			workspace
//	@Produce		json
//	@Param			userId	path		string	true	"User id"
//	@Success		200		{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/workspace/{userId}/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !ownerOnly(w, r, userID) {
		return
	}
	sum, err := h.svc.Stats(r.Context(), userID)
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Classify handles POST /api/classify.
//
//	@Summary		Turn free text into a task suggestion
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ClassifyRequest	true	"Text"
//	@Success		200		{object}	Suggestion
//	@Success		204		"No suggestion"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/classify [post]
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s, ok := h.svc.Classify(r.Context(), req.Text)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// Share handles GET /api/share/{workspaceId}.
//
//	@Summary		Issue a share link (not enforced)
//	@Tags			workspace
//	@Produce		json
//	@Param			workspaceId	path		string	true	"Workspace (owner user) id"
//	@Param			role		query		string	false	"Access role"	Enums(view, comment, edit)
//	@Success		200			{object}	ShareResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/share/{workspaceId} [get]
func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.Share(r.Context(), chi.URLParam(r, "workspaceId"), r.URL.Query().Get("role"))
	if err != nil {
		writeError(w, "share", err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// Events handles GET /api/events. A JWT caller is limited to its own board.
//
//	@Summary		Live board events (SSE)
//	@Tags			events
//	@Produce		text/event-stream
//	@Param			userId	query	string	false	"Only events for this user"
//	@Success		200
//	@Security		BearerAuth
//	@Router			/events [get]
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	if sub := Subject(r.Context()); sub != "" {
		q := r.URL.Query()
		if want := q.Get("userId"); want != "" && want != sub {
			writeJSON(w, http.StatusForbidden, errorBody("forbidden"))
			return
		}
		q.Set("userId", sub)
		r.URL.RawQuery = q.Encode()
	}
	h.events.ServeHTTP(w, r)
}
