package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkurup/bujo-bot/internal/journal"
)

// Core returns the journal capabilities: expense lookup and creation, MAG
// update and listing. External tools (search, computation, translation, image
// generation) register through the same Capability type from the outside.
func Core(book *journal.Book, now func() time.Time) []Capability {
	if now == nil {
		now = time.Now
	}
	return []Capability{
		{
			Name:        "expense_lookup",
			Description: `fetch expenses for a period. Input: {"filters": ["(Date,ge,exactDate,YYYY-MM-DD)", ...]}`,
			Run: func(ctx context.Context, input string) (string, error) {
				items, err := book.Expenses().List(ctx, input)
				if err != nil {
					return "", err
				}
				if len(items) == 0 {
					return "No expenses found for the specified period.", nil
				}
				lines := make([]string, 0, len(items))
				for _, it := range items {
					lines = append(lines, fmt.Sprintf("%s: %s ₹%v",
						it.String(journal.FieldDate), it.String(journal.FieldItem), it[journal.FieldAmount]))
				}
				return strings.Join(lines, "\n"), nil
			},
		},
		{
			Name:        "expense_create",
			Description: `record a new expense. Input: {"Item": string, "Amount": number, "Date": "YYYY-MM-DD"}`,
			Run: func(ctx context.Context, input string) (string, error) {
				var exp journal.Expense
				if err := json.Unmarshal([]byte(input), &exp); err != nil {
					return "", fmt.Errorf("decoding expense input: %w", err)
				}
				if err := exp.Normalize(now()); err != nil {
					return "", err
				}
				res, err := book.AddExpense(ctx, exp)
				if err != nil {
					return "", errors.New("failed to add expense entry. Try again?")
				}
				if res.LinkErr != nil {
					return fmt.Sprintf("Expense added on %s for %s ₹%s, but it could not be linked to the day's MAG.",
						exp.Date, exp.Item, exp.Amount.String()), nil
				}
				return fmt.Sprintf("Expense added on %s for %s ₹%s.", exp.Date, exp.Item, exp.Amount.String()), nil
			},
		},
		{
			Name:        "daylog_update",
			Description: `update a MAG day entry. Input: {"date_filter": "YYYY-MM-DD", "payload": {"Note": string and/or "Exercise": bool}}`,
			Run: func(ctx context.Context, input string) (string, error) {
				var change struct {
					DateFilter string         `json:"date_filter"`
					Payload    map[string]any `json:"payload"`
				}
				if err := json.Unmarshal([]byte(input), &change); err != nil {
					return "", fmt.Errorf("decoding MAG update input: %w", err)
				}
				view, err := book.DayLogs().Modify(ctx, change.DateFilter, change.Payload)
				if err != nil {
					if errors.Is(err, journal.ErrNoDayLog) {
						return "No MAG object found for the given date.", nil
					}
					return "", err
				}
				return fmt.Sprintf("MAG updated: %v", view), nil
			},
		},
		{
			Name:        "daylog_list",
			Description: `fetch MAG day entries for a period. Input: {"filters": ["(Date,ge,exactDate,YYYY-MM-DD)", ...]}`,
			Run: func(ctx context.Context, input string) (string, error) {
				entries, err := book.DayLogs().List(ctx, input)
				if err != nil {
					return "", err
				}
				if len(entries) == 0 {
					return "No entries found for the specified period.", nil
				}
				lines := make([]string, 0, len(entries))
				for _, e := range entries {
					lines = append(lines, fmt.Sprintf("%s (%s): Tithi %s, Note %q, Exercise %v, Expenses ₹%v",
						e.String(journal.FieldDate), e.String(journal.FieldDay), e.String(journal.FieldTithi),
						e.String(journal.FieldNote), e.Bool(journal.FieldExercise), e[journal.FieldExpenseSum]))
				}
				return strings.Join(lines, "\n"), nil
			},
		},
	}
}
