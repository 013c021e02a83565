package bot

import (
	"context"
	"sync"
)

// Router dispatches events to command entry points and, for plain text, to
// the chat's active conversation state. State is keyed per chat, so two chats
// never observe each other's conversations.
type Router struct {
	mu       sync.Mutex
	entries  map[string]Handler
	active   map[int64]Handler
	fallback Handler
	mw       []Middleware
}

// NewRouter creates a Router. Middleware wraps every dispatched handler,
// entry points and awaiting-input states alike.
func NewRouter(mw ...Middleware) *Router {
	return &Router{
		entries: map[string]Handler{},
		active:  map[int64]Handler{},
		mw:      mw,
	}
}

// Command registers a flow entry point for a command name (no slash).
func (r *Router) Command(name string, h Handler) {
	r.entries[name] = h
}

// Fallback registers the handler for plain text arriving outside any
// conversation. Optional; without one such messages are ignored.
func (r *Router) Fallback(h Handler) {
	r.fallback = h
}

func (r *Router) wrap(h Handler) Handler {
	for i := len(r.mw) - 1; i >= 0; i-- {
		h = r.mw[i](h)
	}
	return h
}

// Dispatch routes one event and applies the resulting state transition.
func (r *Router) Dispatch(ctx context.Context, ev Event) Outcome {
	h := r.pick(ev)
	if h == nil {
		return Outcome{}
	}

	out := r.wrap(h)(ctx, ev)

	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case out.End:
		delete(r.active, ev.ChatID)
	case out.Next != nil:
		r.active[ev.ChatID] = out.Next
	}
	return out
}

func (r *Router) pick(ev Event) Handler {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ev.Command != "" {
		if h, ok := r.entries[ev.Command]; ok {
			return h
		}
		return nil
	}
	if h, ok := r.active[ev.ChatID]; ok {
		return h
	}
	return r.fallback
}

// Cancel is the entry handler for the cancel command: it acknowledges and
// terminates whatever conversation is active.
func Cancel(ack string) Handler {
	return func(ctx context.Context, ev Event) Outcome {
		return Outcome{Reply: ack, End: true}
	}
}
