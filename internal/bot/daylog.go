package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dkurup/bujo-bot/internal/journal"
	"github.com/dkurup/bujo-bot/internal/logger"
	"github.com/dkurup/bujo-bot/internal/oracle"
)

// MagManager owns the MAG conversation flows: modifying a day's note or
// exercise flag, and listing a period as an HTML summary document.
type MagManager struct {
	daylogs *journal.DayLogs
	orc     oracle.Oracle
	now     func() time.Time
}

// NewMagManager creates the manager. now may be nil for the wall clock.
func NewMagManager(daylogs *journal.DayLogs, orc oracle.Oracle, now func() time.Time) *MagManager {
	if now == nil {
		now = time.Now
	}
	return &MagManager{daylogs: daylogs, orc: orc, now: now}
}

func (m *MagManager) todayLine() string {
	return "Today's date is " + m.now().Format("2006-01-02 Monday")
}

// magChange is the payload shape the oracle produces for a modify request.
type magChange struct {
	DateFilter string         `json:"date_filter"`
	Payload    map[string]any `json:"payload"`
}

// StartModify is the /update_mag entry point.
func (m *MagManager) StartModify(ctx context.Context, ev Event) Outcome {
	return Outcome{
		Reply: "💰 Update your MAG by giving instructions to modify a note or exercise done below. Done with changes? Go for the cancel command!",
		Next:  m.HandleModifyInput,
	}
}

// HandleModifyInput merges the interpreted partial payload into the day's MAG
// entry and replies with a summary of the updated record.
func (m *MagManager) HandleModifyInput(ctx context.Context, ev Event) Outcome {
	log := logger.FromContext(ctx)

	raw, err := m.orc.Complete(ctx, []oracle.Message{
		oracle.System(magModifyPrompt),
		oracle.System(m.todayLine()),
		oracle.User(strings.TrimSpace(ev.Text)),
	})
	if err != nil {
		log.Error().Err(err).Msg("MAG modify extraction call failed")
		return Outcome{Reply: "❌ Could not interpret that right now. Try again?"}
	}

	var change magChange
	if err := oracle.Decode(raw, &change); err != nil || change.DateFilter == "" {
		log.Error().Err(err).Msg("MAG modify response did not parse")
		return Outcome{Reply: "❌ Failed to parse the input. Try again?"}
	}

	view, err := m.daylogs.Modify(ctx, change.DateFilter, change.Payload)
	if err != nil {
		if errors.Is(err, journal.ErrNoDayLog) {
			return Outcome{Reply: "❌ No MAG object found for the given date. Try again?"}
		}
		log.Error().Err(err).Msg("MAG update failed")
		return Outcome{Reply: "❌ Updating MAG failed. Try again?"}
	}

	summary, err := m.orc.Complete(ctx, []oracle.Message{
		oracle.User("Summarise the following data: " + fmt.Sprint(view) + "\n" + summaryCurrencyNote),
	})
	if err != nil {
		log.Error().Err(err).Msg("MAG summarization call failed")
		return Outcome{Reply: "✅ MAG updated successfully."}
	}
	return Outcome{
		Reply:    "✅ MAG updated successfully! Here's the summary:\n\n" + strings.TrimSpace(summary),
		Markdown: true,
	}
}

// StartList is the /list_mag entry point.
func (m *MagManager) StartList(ctx context.Context, ev Event) Outcome {
	return Outcome{
		Reply: "📅 Please specify the month (e.g., 'March 2025') or day (e.g., '2025-03-15') for which you want to list MAG entries.",
		Next:  m.HandleListInput,
	}
}

// HandleListInput fetches one page of MAG entries for the period and delivers
// the oracle's HTML rendering as a document attachment.
func (m *MagManager) HandleListInput(ctx context.Context, ev Event) Outcome {
	log := logger.FromContext(ctx)

	rawFilter, err := m.orc.Complete(ctx, []oracle.Message{
		oracle.System(filterPrompt),
		oracle.System(m.todayLine()),
		oracle.User(strings.TrimSpace(ev.Text)),
	})
	if err != nil {
		log.Error().Err(err).Msg("MAG filter extraction call failed")
		return Outcome{Reply: "❌ Could not interpret that right now. Try again?"}
	}

	entries, err := m.daylogs.List(ctx, rawFilter)
	if err != nil {
		log.Error().Err(err).Str("filter", rawFilter).Msg("MAG list failed")
		return Outcome{Reply: "❌ Failed to fetch MAG entries. Try again?"}
	}
	if len(entries) == 0 {
		return Outcome{Reply: fmt.Sprintf("❌ No entries found for the specified period. %s", oracle.StripFences(rawFilter))}
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("Date: %s, Day: %s, Tithi: %s, Note: %s, Exercise: %v, Expenses on day: %v",
			e.String(journal.FieldDate), e.String(journal.FieldDay), e.String(journal.FieldTithi),
			e.String(journal.FieldNote), e.Bool(journal.FieldExercise), e[journal.FieldExpenseSum]))
	}

	summary, err := m.orc.Complete(ctx, []oracle.Message{
		oracle.User(magSummaryPrompt + "\nRequest: " + ev.Text + "\n" + strings.Join(lines, "\n")),
	})
	if err != nil {
		log.Error().Err(err).Msg("MAG summarization call failed")
		return Outcome{Reply: "❌ Fetched the MAG entries but could not render the summary. Try again?"}
	}

	return Outcome{
		Document: &Document{
			Name:    fmt.Sprintf("mag_summary_%s.html", uuid.NewString()[:8]),
			Data:    []byte(strings.TrimSpace(summary)),
			Caption: "MAG Summary",
		},
	}
}
