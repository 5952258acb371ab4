// Package dashboard aggregates a board into task and expense totals.
package dashboard

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/starford/corkboard/internal/board"
)

// TaskStats counts tasks.
type TaskStats struct {
	Total      int                    `json:"total"`
	Completed  int                    `json:"completed"`
	Pending    int                    `json:"pending"`
	ByPriority map[board.Priority]int `json:"byPriority"`
}

// Amount is a labelled sum.
type Amount struct {
	Key    string          `json:"key"`
	Amount decimal.Decimal `json:"amount"`
}

// ExpenseStats sums expenses.
type ExpenseStats struct {
	Total decimal.Decimal `json:"total"`
	// ByDate is sorted by date ascending.
	ByDate []Amount `json:"byDate"`
	// ByCategory is sorted by category name.
	ByCategory []Amount `json:"byCategory"`
}

// Summary is the dashboard view of a board.
type Summary struct {
	Tasks    TaskStats    `json:"tasks"`
	Expenses ExpenseStats `json:"expenses"`
}

// Summarize aggregates items.
func Summarize(items []board.Item) Summary {
	return Summary{
		Tasks:    taskStats(items),
		Expenses: expenseStats(board.Expenses(items)),
	}
}

func taskStats(items []board.Item) TaskStats {
	s := TaskStats{ByPriority: map[board.Priority]int{}}
	for _, it := range items {
		task, ok := it.Body.(board.Task)
		if !ok {
			continue
		}
		s.Total++
		if task.Completed {
			s.Completed++
		}
		s.ByPriority[task.Priority]++
	}
	s.Pending = s.Total - s.Completed
	return s
}

func expenseStats(expenses []board.Expense) ExpenseStats {
	s := ExpenseStats{Total: decimal.Zero}
	byDate := map[string]decimal.Decimal{}
	byCat := map[string]decimal.Decimal{}
	for _, e := range expenses {
		s.Total = s.Total.Add(e.Amount)
		byDate[e.Date] = byDate[e.Date].Add(e.Amount)
		cat := e.Category
		if cat == "" {
			cat = "General"
		}
		byCat[cat] = byCat[cat].Add(e.Amount)
	}
	s.ByDate = sorted(byDate)
	s.ByCategory = sorted(byCat)
	return s
}

func sorted(m map[string]decimal.Decimal) []Amount {
	out := make([]Amount, 0, len(m))
	for k, v := range m {
		out = append(out, Amount{Key: k, Amount: v})
	}
	slices.SortFunc(out, func(a, b Amount) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return out
}
