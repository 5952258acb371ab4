// Package boardservice coordinates the datastore, the live event broker and
// the AI collaborator behind the HTTP and MCP surfaces.
package boardservice

import (
	"context"
	"fmt"
	"io"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/corkboard/internal/ai"
	"github.com/starford/corkboard/internal/apperr"
	"github.com/starford/corkboard/internal/board"
	"github.com/starford/corkboard/internal/checksum"
	"github.com/starford/corkboard/internal/dashboard"
	"github.com/starford/corkboard/internal/render"
	"github.com/starford/corkboard/internal/workspace"
)

// Share roles.
const (
	RoleView    = "view"
	RoleComment = "comment"
	RoleEdit    = "edit"
)

// Publisher announces stored board changes to live clients.
type Publisher interface {
	PublishWorkspaceEvent(kind, userID string)
}

// Service coordinates workspace storage, events and AI.
type Service struct {
	store    workspace.Store
	events   Publisher
	analyzer *ai.Analyzer
}

// NewService creates a Service. events and analyzer may be nil.
func NewService(store workspace.Store, events Publisher, analyzer *ai.Analyzer) *Service {
	if analyzer == nil {
		analyzer = ai.New(nil, nil)
	}
	return &Service{store: store, events: events, analyzer: analyzer}
}

// WorkspaceDetail is a stored board plus the digest of its items.
type WorkspaceDetail struct {
	workspace.Record
	Checksum string `json:"checksum"`
}

// ShareLink is the response of the share stub.
type ShareLink struct {
	Message string `json:"message"`
	Link    string `json:"link"`
	Role    string `json:"role"`
	Token   string `json:"token"`
}

// Login finds or creates the user by email.
func (s *Service) Login(ctx context.Context, u workspace.User) (workspace.User, error) {
	return s.store.Login(ctx, u)
}

// UpdateUser changes a user's profile and theme.
func (s *Service) UpdateUser(ctx context.Context, u workspace.User) (workspace.User, error) {
	return s.store.UpdateUser(ctx, u)
}

// GetWorkspace returns the user's board, creating an empty one on first use.
func (s *Service) GetWorkspace(ctx context.Context, userID string) (*WorkspaceDetail, error) {
	rec, err := s.store.GetWorkspace(ctx, userID)
	if err != nil {
		return nil, err
	}
	return detail(rec)
}

// SaveWorkspace validates items, clears dangling group references and stores
// the result. Live clients get a workspace.updated event.
func (s *Service) SaveWorkspace(ctx context.Context, userID string, items []board.Item) (*WorkspaceDetail, error) {
	if err := board.ValidateItems(items); err != nil {
		return nil, err
	}
	rec, err := s.store.SaveWorkspace(ctx, userID, board.Normalize(items))
	if err != nil {
		return nil, err
	}
	if s.events != nil {
		s.events.PublishWorkspaceEvent("updated", userID)
	}
	return detail(rec)
}

func detail(rec workspace.Record) (*WorkspaceDetail, error) {
	sum, err := checksum.Items(rec.Items)
	if err != nil {
		return nil, fmt.Errorf("boardservice: checksum: %w", err)
	}
	return &WorkspaceDetail{Record: rec, Checksum: sum}, nil
}

// Export writes the user's board as PNG.
func (s *Service) Export(ctx context.Context, userID string, w io.Writer) error {
	rec, err := s.store.GetWorkspace(ctx, userID)
	if err != nil {
		return err
	}
	return render.PNG(w, rec.Items)
}

// Analyze asks the model for a summary of the user's board. The returned
// text is a fixed placeholder when the model is unavailable.
func (s *Service) Analyze(ctx context.Context, userID string) (string, error) {
	rec, err := s.store.GetWorkspace(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.analyzer.Analyze(ctx, rec.Items, board.Expenses(rec.Items)), nil
}

// Advice asks the model for a short comment on the board's expenses.
func (s *Service) Advice(ctx context.Context, userID string) (string, error) {
	rec, err := s.store.GetWorkspace(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.analyzer.FinancialAdvice(ctx, board.Expenses(rec.Items)), nil
}

// Classify turns free text into a task suggestion. ok is false when the
// model is unavailable or gave nothing usable.
func (s *Service) Classify(ctx context.Context, text string) (ai.Suggestion, bool) {
	return s.analyzer.Classify(ctx, text)
}

// Stats aggregates the user's tasks and expenses.
func (s *Service) Stats(ctx context.Context, userID string) (dashboard.Summary, error) {
	rec, err := s.store.GetWorkspace(ctx, userID)
	if err != nil {
		return dashboard.Summary{}, err
	}
	return dashboard.Summarize(rec.Items), nil
}

// Share returns a link for workspaceID. Sharing is not enforced anywhere;
// the token is informational. An empty role means view.
func (s *Service) Share(_ context.Context, workspaceID, role string) (ShareLink, error) {
	if role == "" {
		role = RoleView
	}
	err := validation.Validate(role, validation.In(RoleView, RoleComment, RoleEdit))
	if err != nil || workspaceID == "" {
		return ShareLink{}, fmt.Errorf("boardservice: share %q as %q: %w", workspaceID, role, apperr.ErrInvalid)
	}
	return ShareLink{
		Message: "Share link valid",
		Link:    "/share/" + url.PathEscape(workspaceID) + "?role=" + url.QueryEscape(role),
		Role:    role,
		Token:   uuid.NewString(),
	}, nil
}
