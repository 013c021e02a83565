package agent

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Exchange is one user turn and the reply it produced.
type Exchange struct {
	ID        string
	User      string
	Assistant string
}

// Memory is a bounded window of prior exchanges, keyed by chat so concurrent
// sessions never observe each other's history.
type Memory struct {
	mu     sync.Mutex
	max    int
	window map[int64][]Exchange
}

// NewMemory creates a Memory keeping the last max exchanges per chat.
func NewMemory(max int) *Memory {
	if max <= 0 {
		max = 10
	}
	return &Memory{max: max, window: map[int64][]Exchange{}}
}

// Record appends an exchange, evicting the oldest past the window size.
func (m *Memory) Record(chatID int64, user, assistant string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := append(m.window[chatID], Exchange{
		ID:        uuid.NewString(),
		User:      user,
		Assistant: assistant,
	})
	if len(w) > m.max {
		w = w[len(w)-m.max:]
	}
	m.window[chatID] = w
}

// Render returns the chat's window as prompt text, oldest first.
func (m *Memory) Render(chatID int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.window[chatID]
	if len(w) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, ex := range w {
		fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n", ex.User, ex.Assistant)
	}
	return strings.TrimRight(sb.String(), "\n")
}
