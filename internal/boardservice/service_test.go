package boardservice

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/starford/corkboard/internal/ai"
	"github.com/starford/corkboard/internal/apperr"
	"github.com/starford/corkboard/internal/board"
	"github.com/starford/corkboard/internal/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishWorkspaceEvent(kind, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, kind+":"+userID)
}

type fixedGenerator struct {
	reply string
}

func (g fixedGenerator) Generate(context.Context, ai.Request) (string, error) {
	return g.reply, nil
}

func newService(t *testing.T, gen ai.Generator) (*Service, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	var analyzer *ai.Analyzer
	if gen != nil {
		analyzer = ai.New(gen, nil)
	}
	return NewService(testutil.TestDB(t), pub, analyzer), pub
}

func sampleItems() []board.Item {
	return []board.Item{
		{ID: "g", Position: board.Position{X: 0, Y: 0}, Size: board.Size{Width: 600, Height: 400}, Body: board.Group{Title: "Q3"}},
		{ID: "t", Position: board.Position{X: 20, Y: 20}, Size: board.Size{Width: 300, Height: 200}, ZIndex: 2, GroupID: "g",
			Body: board.Task{Title: "Ship", Priority: board.PriorityHigh}},
		{ID: "w", Position: board.Position{X: 700, Y: 0}, Size: board.Size{Width: 320, Height: 400}, ZIndex: 3,
			Body: board.ExpenseWidget{Title: "Budget", Expenses: []board.Expense{
				{ID: "e1", Description: "Paper", Amount: decimal.RequireFromString("12.50"), Date: "2026-03-01", Category: "Office"},
			}}},
	}
}

func TestSaveWorkspaceNormalizesAndPublishes(t *testing.T) {
	svc, pub := newService(t, nil)
	ctx := context.Background()

	items := sampleItems()
	items = append(items, board.Item{
		ID: "n", Size: board.Size{Width: 10, Height: 10}, GroupID: "missing",
		Body: board.Note{Content: "x"},
	})
	saved, err := svc.SaveWorkspace(ctx, "u1", items)
	if err != nil {
		t.Fatal(err)
	}
	if got := saved.Items[3].GroupID; got != "" {
		t.Errorf("dangling group ref kept: %q", got)
	}
	if len(pub.events) != 1 || pub.events[0] != "updated:u1" {
		t.Errorf("events = %v", pub.events)
	}

	got, err := svc.GetWorkspace(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != 4 || got.Checksum != saved.Checksum {
		t.Errorf("get = %d items, checksum %s; want 4, %s", len(got.Items), got.Checksum, saved.Checksum)
	}
}

func TestSaveWorkspaceRejectsDuplicates(t *testing.T) {
	svc, pub := newService(t, nil)
	items := sampleItems()
	items = append(items, items[1])
	if _, err := svc.SaveWorkspace(context.Background(), "u1", items); !errors.Is(err, apperr.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
	if len(pub.events) != 0 {
		t.Errorf("published on failure: %v", pub.events)
	}
}

func TestStatsAndExport(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	if _, err := svc.SaveWorkspace(ctx, "u1", sampleItems()); err != nil {
		t.Fatal(err)
	}

	sum, err := svc.Stats(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if sum.Tasks.Total != 1 || sum.Tasks.Pending != 1 {
		t.Errorf("tasks = %+v", sum.Tasks)
	}
	if !sum.Expenses.Total.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("expense total = %s", sum.Expenses.Total)
	}

	var buf bytes.Buffer
	if err := svc.Export(ctx, "u1", &buf); err != nil {
		t.Fatal(err)
	}
	if _, err := png.Decode(&buf); err != nil {
		t.Fatalf("export is not a PNG: %v", err)
	}
}

func TestAnalyzeUsesPlaceholderWithoutKey(t *testing.T) {
	svc, _ := newService(t, nil)
	got, err := svc.Analyze(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got != ai.MsgNoKey {
		t.Errorf("analysis = %q", got)
	}
	if _, ok := svc.Classify(context.Background(), "buy toner"); ok {
		t.Error("classify without key returned a suggestion")
	}
}

func TestAnalyzeAndAdviceWithModel(t *testing.T) {
	svc, _ := newService(t, fixedGenerator{reply: "<b>fine</b>"})
	ctx := context.Background()
	if _, err := svc.SaveWorkspace(ctx, "u1", sampleItems()); err != nil {
		t.Fatal(err)
	}
	if got, _ := svc.Analyze(ctx, "u1"); got != "<b>fine</b>" {
		t.Errorf("analysis = %q", got)
	}
	if got, _ := svc.Advice(ctx, "u1"); got != "<b>fine</b>" {
		t.Errorf("advice = %q", got)
	}
}

func TestShare(t *testing.T) {
	svc, _ := newService(t, nil)
	link, err := svc.Share(context.Background(), "ws 1", "")
	if err != nil {
		t.Fatal(err)
	}
	if link.Role != RoleView || link.Token == "" || link.Message != "Share link valid" {
		t.Errorf("link = %+v", link)
	}
	if !strings.HasPrefix(link.Link, "/share/ws%201?role=view") {
		t.Errorf("link = %s", link.Link)
	}
	if _, err := svc.Share(context.Background(), "ws", "owner"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("owner role err = %v, want ErrInvalid", err)
	}
}
