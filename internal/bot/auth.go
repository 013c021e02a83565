package bot

import (
	"context"

	"github.com/dkurup/bujo-bot/internal/logger"
)

const rejectionReply = "🚫 You're not authorized to use this bot."

// Authorize gates a handler behind the operator allow-list. The check runs on
// every invocation: a conversation never inherits a prior authorization
// decision. Rejected callers get the rejection reply, the conversation ends,
// and when an audit sink is configured the original message is forwarded to
// it verbatim with an explanatory note. Authorized calls pass through with
// the event untouched.
func Authorize(allowed []int64, audit AuditSink) Middleware {
	allowedSet := make(map[int64]bool, len(allowed))
	for _, id := range allowed {
		allowedSet[id] = true
	}

	return func(next Handler) Handler {
		return func(ctx context.Context, ev Event) Outcome {
			if !allowedSet[ev.UserID] {
				log := logger.FromContext(ctx)
				log.Warn().Int64("user_id", ev.UserID).Int64("chat_id", ev.ChatID).Msg("rejected non-allow-listed caller")
				if audit != nil {
					if err := audit.Escalate(ctx, ev, "message from a non-allow-listed caller"); err != nil {
						log.Error().Err(err).Msg("audit escalation failed")
					}
				}
				return Outcome{Reply: rejectionReply, End: true}
			}
			return next(ctx, ev)
		}
	}
}
