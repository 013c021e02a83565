// Package bot contains the conversation machinery: the uniform handler shape
// every entry point implements, the authorization gate, the per-chat flow
// router, and the expense and MAG conversation flows.
package bot

import "context"

// Event is one inbound message, already stripped of transport details.
type Event struct {
	ChatID  int64
	UserID  int64
	Command string // command name without the slash, "" for plain text
	Text    string
}

// Document is a generated file delivered alongside a reply.
type Document struct {
	Name    string
	Data    []byte
	Caption string
}

// Outcome is what a handler wants sent back, plus the state transition for
// the chat's active conversation.
type Outcome struct {
	Reply    string
	Markdown bool
	Document *Document
	// Next, when set, becomes the chat's awaiting-input handler. A nil Next
	// keeps the current state.
	Next Handler
	// End terminates the active conversation.
	End bool
}

// Handler processes one event. Every entry point — command entries and
// per-message conversation states alike — is a Handler, so middleware applies
// uniformly regardless of calling convention.
type Handler func(ctx context.Context, ev Event) Outcome

// Middleware wraps one Handler to produce another.
type Middleware func(Handler) Handler

// AuditSink receives messages from rejected callers for operator review.
type AuditSink interface {
	Escalate(ctx context.Context, ev Event, note string) error
}

// Static returns a handler that always replies with the same text.
func Static(reply string) Handler {
	return func(ctx context.Context, ev Event) Outcome {
		return Outcome{Reply: reply}
	}
}
