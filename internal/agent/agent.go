// Package agent is the single-shot routing variant of the conversation
// machinery: instead of explicit per-command states, one dispatcher hands the
// free text to the oracle, which selects a named capability. State lives in a
// bounded per-chat memory window rather than in flow states.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dkurup/bujo-bot/internal/logger"
	"github.com/dkurup/bujo-bot/internal/oracle"
)

// Capability is one named handler the oracle can route to.
type Capability struct {
	Name        string
	Description string
	Run         func(ctx context.Context, input string) (string, error)
}

// UnknownCapabilityError reports an oracle selection that matches no
// registered capability. It is a distinct error kind, never a silent
// fallthrough to some default handler.
type UnknownCapabilityError struct {
	Name string
}

func (e *UnknownCapabilityError) Error() string {
	return fmt.Sprintf("agent: unknown capability %q", e.Name)
}

// selection is the oracle's routing decision.
type selection struct {
	Tool  string          `json:"tool"`
	Input json.RawMessage `json:"input"`
}

// Dispatcher routes free text to capabilities via the oracle. Tool selection
// is best-effort and non-deterministic; every failure mode is contained into
// a user-visible string.
type Dispatcher struct {
	orc  oracle.Oracle
	caps map[string]Capability
	mem  *Memory
	now  func() time.Time
}

// NewDispatcher creates a Dispatcher with an empty registry.
func NewDispatcher(orc oracle.Oracle, mem *Memory, now func() time.Time) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		orc:  orc,
		caps: map[string]Capability{},
		mem:  mem,
		now:  now,
	}
}

// Register adds a capability. Registering a duplicate name is a programming
// error and is rejected.
func (d *Dispatcher) Register(c Capability) error {
	if c.Name == "" || c.Run == nil {
		return fmt.Errorf("agent: capability needs a name and a handler")
	}
	if _, exists := d.caps[c.Name]; exists {
		return fmt.Errorf("agent: capability %q already registered", c.Name)
	}
	d.caps[c.Name] = c
	return nil
}

func (d *Dispatcher) routingPrompt() string {
	names := make([]string, 0, len(d.caps))
	for name := range d.caps {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("You are a personal assistant router. Pick exactly one tool for the user's message.\n")
	sb.WriteString("Available tools:\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "- %s: %s\n", name, d.caps[name].Description)
	}
	sb.WriteString("Respond with JSON only: {\"tool\": \"<name>\", \"input\": <tool input>}.\n")
	sb.WriteString("The input must match what the tool's description asks for. No other text.")
	return sb.String()
}

// Handle routes one message and always returns a user-visible reply; no
// failure escapes as an error.
func (d *Dispatcher) Handle(ctx context.Context, chatID int64, text string) string {
	log := logger.FromContext(ctx)

	msgs := []oracle.Message{
		oracle.System(d.routingPrompt()),
		oracle.System("Today's date is " + d.now().Format("2006-01-02 Monday")),
	}
	if d.mem != nil {
		if recall := d.mem.Render(chatID); recall != "" {
			msgs = append(msgs, oracle.System("Recent conversation:\n"+recall))
		}
	}
	msgs = append(msgs, oracle.User(strings.TrimSpace(text)))

	raw, err := d.orc.Complete(ctx, msgs)
	if err != nil {
		log.Error().Err(err).Msg("routing call failed")
		return "❌ Could not reach the assistant right now. Try again?"
	}

	var sel selection
	if err := oracle.Decode(raw, &sel); err != nil {
		log.Error().Err(err).Msg("routing response did not parse")
		return "❌ Failed to understand that request. Try again?"
	}

	cap, ok := d.caps[sel.Tool]
	if !ok {
		err := &UnknownCapabilityError{Name: sel.Tool}
		log.Error().Err(err).Msg("oracle selected an unregistered tool")
		return fmt.Sprintf("❌ I don't have a %q capability. Try rephrasing?", sel.Tool)
	}

	reply, err := runContained(ctx, cap, decodeInput(sel.Input))
	if err != nil {
		log.Error().Err(err).Str("tool", cap.Name).Msg("capability invocation failed")
		reply = fmt.Sprintf("❌ %s failed: %v", cap.Name, err)
	}

	if d.mem != nil {
		d.mem.Record(chatID, text, reply)
	}
	return reply
}

// decodeInput turns the routed input into the string form capabilities take:
// JSON strings are unquoted, anything else is passed as its JSON text.
func decodeInput(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// runContained invokes the capability, converting panics into errors so no
// tool can take the dispatcher down.
func runContained(ctx context.Context, c Capability, input string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent: %s panicked: %v", c.Name, r)
		}
	}()
	return c.Run(ctx, input)
}
