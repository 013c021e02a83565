// Package digest implements the morning summary: a time-triggered job that
// looks up today's MAG entry and pushes it to the operator's chat.
package digest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkurup/bujo-bot/internal/journal"
	"github.com/dkurup/bujo-bot/internal/logger"
)

// Sender delivers one digest message to a fixed destination chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Job queries today's MAG entry and sends a formatted summary. No entry for
// today is a no-op, not an error. Delivery failures are logged, never
// retried: the next scheduled run is the retry.
type Job struct {
	daylogs *journal.DayLogs
	sender  Sender
	chatID  int64
	now     func() time.Time
}

// NewJob creates the digest job. now may be nil for the wall clock.
func NewJob(daylogs *journal.DayLogs, sender Sender, chatID int64, now func() time.Time) *Job {
	if now == nil {
		now = time.Now
	}
	return &Job{daylogs: daylogs, sender: sender, chatID: chatID, now: now}
}

// Run executes one digest cycle.
func (j *Job) Run(ctx context.Context) {
	log := logger.FromContext(ctx)
	today := j.now().Format(journal.ISODate)

	entry, err := j.daylogs.FindByDate(ctx, today)
	if err != nil {
		if errors.Is(err, journal.ErrNoDayLog) {
			log.Info().Str("date", today).Msg("no MAG entry today, skipping digest")
			return
		}
		log.Error().Err(err).Str("date", today).Msg("digest lookup failed")
		return
	}

	if err := j.sender.Send(ctx, j.chatID, Format(entry)); err != nil {
		log.Error().Err(err).Str("date", today).Msg("digest delivery failed")
		return
	}
	log.Info().Str("date", today).Msg("digest delivered")
}

// Format renders one MAG entry as the digest message.
func Format(entry map[string]any) string {
	rec := journal.DisplayFields(entry)

	var sb strings.Builder
	fmt.Fprintf(&sb, "📖 Day at a glance — %s\n", str(rec[journal.FieldDate]))
	if tithi := str(rec[journal.FieldTithi]); tithi != "" {
		fmt.Fprintf(&sb, "Tithi: %s\n", tithi)
	}
	if note := str(rec[journal.FieldNote]); note != "" {
		fmt.Fprintf(&sb, "Note: %s\n", note)
	}
	if sum, ok := rec[journal.FieldExpenseSum]; ok && sum != nil {
		fmt.Fprintf(&sb, "Expenses so far: ₹%v\n", sum)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
