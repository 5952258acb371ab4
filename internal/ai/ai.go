// Package ai wraps the generative model used to summarise a board and to
// turn free text into task suggestions. Every call degrades to a fixed
// message or an absent result when the model is unavailable.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/starford/corkboard/internal/board"
)

// Placeholder replies.
const (
	MsgNoKey          = "API Key missing."
	MsgAnalyzeFailed  = "Could not analyze workspace at this time."
	MsgNoExpenses     = "Add expenses to get AI insights."
	MsgAdviceFailed   = "AI Busy."
	suggestionHeading = "[AI SUGGESTION]"
)

// Request is one generation call.
type Request struct {
	Prompt string
	// Schema, if set, asks for JSON matching it.
	Schema *genai.Schema
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Suggestion is a task proposed from free text.
type Suggestion struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Priority    board.Priority `json:"priority"`
}

// Analyzer runs the board-level prompts. A nil generator means no
// credential is configured.
type Analyzer struct {
	gen    Generator
	logger *slog.Logger
}

// New returns an Analyzer. gen may be nil.
func New(gen Generator, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{gen: gen, logger: logger}
}

// Enabled reports whether a generator is configured.
func (a *Analyzer) Enabled() bool {
	return a.gen != nil
}

// Analyze returns a short HTML summary of the board and its expenses.
func (a *Analyzer) Analyze(ctx context.Context, items []board.Item, expenses []board.Expense) string {
	if a.gen == nil {
		return MsgNoKey
	}
	out, err := a.gen.Generate(ctx, Request{Prompt: analyzePrompt(items, expenses)})
	if err != nil || strings.TrimSpace(out) == "" {
		a.logFailure("analyze", err)
		return MsgAnalyzeFailed
	}
	return out
}

// Classify turns text into a task suggestion. ok is false when there is no
// generator, no text, or no usable answer.
func (a *Analyzer) Classify(ctx context.Context, text string) (Suggestion, bool) {
	if a.gen == nil || strings.TrimSpace(text) == "" {
		return Suggestion{}, false
	}
	out, err := a.gen.Generate(ctx, Request{
		Prompt: fmt.Sprintf("Convert this text into a task object: %q", text),
		Schema: taskSchema(),
	})
	if err != nil {
		a.logFailure("classify", err)
		return Suggestion{}, false
	}
	var s Suggestion
	if err := json.Unmarshal([]byte(out), &s); err != nil {
		a.logFailure("classify", err)
		return Suggestion{}, false
	}
	if s.Title == "" || !s.Priority.Valid() {
		return Suggestion{}, false
	}
	return s, true
}

// FinancialAdvice returns a few lines of advice about the expenses.
func (a *Analyzer) FinancialAdvice(ctx context.Context, expenses []board.Expense) string {
	if a.gen == nil || len(expenses) == 0 {
		return MsgNoExpenses
	}
	data, err := json.Marshal(expenses)
	if err != nil {
		return MsgAdviceFailed
	}
	out, err := a.gen.Generate(ctx, Request{
		Prompt: "Analyze these expenses and give 3 bullet points of advice: " + string(data),
	})
	if err != nil || strings.TrimSpace(out) == "" {
		a.logFailure("advice", err)
		return MsgAdviceFailed
	}
	return out
}

func (a *Analyzer) logFailure(op string, err error) {
	msg := "empty response"
	if err != nil {
		msg = err.Error()
	}
	a.logger.Warn("ai: request failed", slog.String("op", op), slog.String("error", msg))
}

// ApplySuggestion appends s to a note's text.
func ApplySuggestion(content string, s Suggestion) string {
	return fmt.Sprintf("%s\n\n%s\nTitle: %s\nPriority: %s", content, suggestionHeading, s.Title, s.Priority)
}

func taskSchema() *genai.Schema {
	priorities := make([]string, len(board.Priorities))
	for i, p := range board.Priorities {
		priorities[i] = string(p)
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":       {Type: genai.TypeString},
			"description": {Type: genai.TypeString},
			"priority":    {Type: genai.TypeString, Enum: priorities},
		},
		Required: []string{"title", "priority"},
	}
}

func analyzePrompt(items []board.Item, expenses []board.Expense) string {
	var b strings.Builder
	b.WriteString("Analyze the following productivity workspace data.\n\nItems on Board:\n")
	for _, it := range items {
		b.WriteString(describe(it))
		b.WriteByte('\n')
	}
	b.WriteString("\nRecent Expenses:\n")
	for _, e := range expenses {
		fmt.Fprintf(&b, "%s: %s ($%s)\n", e.Date, e.Description, e.Amount.StringFixed(2))
	}
	b.WriteString("\nProvide a brief, encouraging summary of the user's workload, suggest 2 prioritized " +
		"actions based on tasks, and give a 1-sentence financial tip based on expenses.\n" +
		"Format as HTML (simple tags like <b>, <ul>, <li>).")
	return b.String()
}

func describe(it board.Item) string {
	switch b := it.Body.(type) {
	case board.Note:
		return "Note: " + b.Content
	case board.Task:
		state := "Pending"
		if b.Completed {
			state = "Done"
		}
		return fmt.Sprintf("Task: %s (%s) - %s", b.Title, b.Priority, state)
	case board.ExpenseWidget:
		return "Expense Widget: " + b.Title
	case board.Group:
		return "Group: " + b.Title
	}
	return "Unknown Item"
}
