package app

import (
	"sync"

	"github.com/google/uuid"

	"tripmate/internal/adapters/observability"
	"tripmate/internal/domain"
)

// Outcome is the single terminal signal a command emits: Err nil means
// success, optionally carrying the updated entity. A command never emits
// twice and never finishes silently.
type Outcome struct {
	Op      string
	Err     error
	Plan    *domain.TravelPlan
	Request *domain.JoinRequest
}

// OutcomeHub fans command outcomes out to UI collaborators (toasts,
// redirects) without the command layer knowing they exist. Created at
// session start, closed at session end.
type OutcomeHub struct {
	mu     sync.Mutex
	subs   map[string]chan Outcome
	closed bool
}

func NewOutcomeHub() *OutcomeHub {
	return &OutcomeHub{subs: make(map[string]chan Outcome)}
}

func (h *OutcomeHub) Subscribe() (string, <-chan Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	token := uuid.NewString()
	ch := make(chan Outcome, 16)
	if h.closed {
		close(ch)
		return token, ch
	}
	h.subs[token] = ch
	return token, ch
}

func (h *OutcomeHub) Unsubscribe(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[token]; ok {
		delete(h.subs, token)
		close(ch)
	}
}

func (h *OutcomeHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for token, ch := range h.subs {
		delete(h.subs, token)
		close(ch)
	}
}

// publish never blocks a command on a slow subscriber; dropped outcomes are
// counted, not silently lost.
func (h *OutcomeHub) publish(o Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- o:
		default:
			observability.DroppedNotices.Inc()
		}
	}
}
