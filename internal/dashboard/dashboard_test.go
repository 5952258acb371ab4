package dashboard

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/starford/corkboard/internal/board"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestSummarize(t *testing.T) {
	items := []board.Item{
		{ID: "t1", Body: board.Task{Priority: board.PriorityHigh, Completed: true}},
		{ID: "t2", Body: board.Task{Priority: board.PriorityHigh}},
		{ID: "t3", Body: board.Task{Priority: board.PriorityLow}},
		{ID: "n", Body: board.Note{}},
		{ID: "w1", Body: board.ExpenseWidget{Expenses: []board.Expense{
			{ID: "a", Amount: d("0.10"), Date: "2026-01-02", Category: "Food"},
			{ID: "b", Amount: d("0.20"), Date: "2026-01-01"},
		}}},
		{ID: "w2", Body: board.ExpenseWidget{Expenses: []board.Expense{
			{ID: "c", Amount: d("5"), Date: "2026-01-02", Category: "Food"},
		}}},
	}
	s := Summarize(items)

	if s.Tasks.Total != 3 || s.Tasks.Completed != 1 || s.Tasks.Pending != 2 {
		t.Fatalf("tasks = %+v", s.Tasks)
	}
	if s.Tasks.ByPriority[board.PriorityHigh] != 2 || s.Tasks.ByPriority[board.PriorityLow] != 1 {
		t.Fatalf("byPriority = %v", s.Tasks.ByPriority)
	}
	if !s.Expenses.Total.Equal(d("5.30")) {
		t.Fatalf("total = %s", s.Expenses.Total)
	}
	if len(s.Expenses.ByDate) != 2 || s.Expenses.ByDate[0].Key != "2026-01-01" || !s.Expenses.ByDate[1].Amount.Equal(d("5.10")) {
		t.Fatalf("byDate = %+v", s.Expenses.ByDate)
	}
	if len(s.Expenses.ByCategory) != 2 || s.Expenses.ByCategory[0].Key != "Food" || s.Expenses.ByCategory[1].Key != "General" {
		t.Fatalf("byCategory = %+v", s.Expenses.ByCategory)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Tasks.Total != 0 || !s.Expenses.Total.IsZero() || s.Expenses.ByDate == nil {
		t.Fatalf("summary = %+v", s)
	}
}
