package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkurup/bujo-bot/internal/journal"
	"github.com/dkurup/bujo-bot/internal/logger"
	"github.com/dkurup/bujo-bot/internal/oracle"
)

// ExpenseManager owns the expense conversation flows: recording a new expense
// and listing/summarizing past ones. Each flow keeps its awaiting-input state
// across turns so several operations can run in one session; /cancel ends it.
type ExpenseManager struct {
	book *journal.Book
	orc  oracle.Oracle
	now  func() time.Time
}

// NewExpenseManager creates the manager. now may be nil for the wall clock.
func NewExpenseManager(book *journal.Book, orc oracle.Oracle, now func() time.Time) *ExpenseManager {
	if now == nil {
		now = time.Now
	}
	return &ExpenseManager{book: book, orc: orc, now: now}
}

func (m *ExpenseManager) todayLine() string {
	return "Today's date is " + m.now().Format("2006-01-02 Monday")
}

// StartAdd is the /add_expenses entry point.
func (m *ExpenseManager) StartAdd(ctx context.Context, ev Event) Outcome {
	return Outcome{
		Reply: "💰 Tell me what you spent, e.g. \"Add mangoes for 40 rupees today\". Done? Go for the cancel command!",
		Next:  m.HandleAddInput,
	}
}

// HandleAddInput interprets one free-text expense and records it. Every
// failure keeps the awaiting state so the user can retry.
func (m *ExpenseManager) HandleAddInput(ctx context.Context, ev Event) Outcome {
	log := logger.FromContext(ctx)

	raw, err := m.orc.Complete(ctx, []oracle.Message{
		oracle.System(expenseExtractPrompt),
		oracle.System(m.todayLine()),
		oracle.User(strings.TrimSpace(ev.Text)),
	})
	if err != nil {
		log.Error().Err(err).Msg("expense extraction call failed")
		return Outcome{Reply: "❌ Could not interpret that right now. Try again?"}
	}

	var exp journal.Expense
	if err := oracle.Decode(raw, &exp); err != nil {
		log.Error().Err(err).Msg("expense extraction response did not parse")
		return Outcome{Reply: "❌ Failed to parse the input. Try again?"}
	}
	if err := exp.Normalize(m.now()); err != nil {
		log.Warn().Err(err).Msg("incomplete expense payload")
		return Outcome{Reply: "❌ I need an item, an amount and a date. Try rephrasing?"}
	}

	// The MAG entry for the date must exist before anything is written, so a
	// missing day is reported without creating an orphaned expense.
	if _, err := m.book.DayLogs().FindByDate(ctx, exp.Date); err != nil {
		if errors.Is(err, journal.ErrNoDayLog) {
			return Outcome{Reply: fmt.Sprintf("❌ No MAG entry exists for %s yet. Seed the day and try again?", exp.Date)}
		}
		log.Error().Err(err).Msg("MAG lookup failed")
		return Outcome{Reply: "❌ Could not reach the journal store. Try again?"}
	}

	res, err := m.book.AddExpense(ctx, exp)
	if err != nil {
		log.Error().Err(err).Msg("expense create failed")
		return Outcome{Reply: "❌ Failed to create the expense entry. Try again?"}
	}
	if res.LinkErr != nil {
		log.Error().Err(res.LinkErr).Msg("expense persisted but link failed")
		return Outcome{Reply: fmt.Sprintf(
			"⚠️ Expense added on %s for %s ₹%s, but linking it to the day's MAG failed. The entry (Id %s) is saved; link it manually.",
			exp.Date, exp.Item, exp.Amount.String(), res.Expense.ID())}
	}
	return Outcome{Reply: fmt.Sprintf("✅ Expense added on %s for %s ₹%s.", exp.Date, exp.Item, exp.Amount.String())}
}

// StartList is the /list_expenses entry point.
func (m *ExpenseManager) StartList(ctx context.Context, ev Event) Outcome {
	return Outcome{
		Reply: "📅 Which period? A month ('March 2025'), a day ('2025-03-15'), 'last month', 'this week'...",
		Next:  m.HandleListInput,
	}
}

// HandleListInput turns the request into a filter expression, fetches the
// complete matching set and replies with a summarization.
func (m *ExpenseManager) HandleListInput(ctx context.Context, ev Event) Outcome {
	log := logger.FromContext(ctx)

	rawFilter, err := m.orc.Complete(ctx, []oracle.Message{
		oracle.System(filterPrompt),
		oracle.System(m.todayLine()),
		oracle.User(strings.TrimSpace(ev.Text)),
	})
	if err != nil {
		log.Error().Err(err).Msg("filter extraction call failed")
		return Outcome{Reply: "❌ Could not interpret that right now. Try again?"}
	}

	// The filter expression is opaque: it goes to the store client verbatim,
	// fences and all.
	items, err := m.book.Expenses().List(ctx, rawFilter)
	if err != nil {
		log.Error().Err(err).Str("filter", rawFilter).Msg("expense list failed")
		return Outcome{Reply: "❌ Failed to fetch expenses for that period. Try again?"}
	}
	if len(items) == 0 {
		return Outcome{Reply: "❌ No expenses found for the specified period."}
	}

	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, fmt.Sprintf("Date: %s, Item: %s, Amount: %v",
			it.String(journal.FieldDate), it.String(journal.FieldItem), it[journal.FieldAmount]))
	}

	summary, err := m.orc.Complete(ctx, []oracle.Message{
		oracle.User(expenseSummaryPrompt + "\nRequest: " + ev.Text + "\n" + strings.Join(lines, "\n")),
	})
	if err != nil {
		log.Error().Err(err).Msg("expense summarization call failed")
		return Outcome{Reply: "❌ Fetched the expenses but could not summarize them. Try again?"}
	}
	return Outcome{Reply: "📋 Expenses:\n\n" + strings.TrimSpace(summary), Markdown: true}
}
