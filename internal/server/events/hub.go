package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 16

// Hub is an in-process Bus.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[string]chan TodosChanged
	buffer int
	done   chan struct{}
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[string]map[string]chan TodosChanged),
		buffer: buffer,
		done:   make(chan struct{}),
	}
}

// Publish delivers ev to every current subscriber of ev.UserID without
// blocking. A full subscriber channel drops the event.
func (h *Hub) Publish(_ context.Context, ev TodosChanged) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[ev.UserID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, userID string) (<-chan TodosChanged, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	id := uuid.NewString()
	ch := make(chan TodosChanged, h.buffer)
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[string]chan TodosChanged)
	}
	h.subs[userID][id] = ch

	go func() {
		select {
		case <-ctx.Done():
			h.unsubscribe(userID, id)
		case <-h.done:
		}
	}()

	return ch, nil
}

func (h *Hub) unsubscribe(userID, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch, ok := h.subs[userID][id]
	if !ok {
		return
	}
	delete(h.subs[userID], id)
	if len(h.subs[userID]) == 0 {
		delete(h.subs, userID)
	}
	close(ch)
}

// Subscribers reports the number of live subscriptions for userID.
func (h *Hub) Subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

// Close ends every subscription. It is safe to call more than once.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	close(h.done)

	for userID, set := range h.subs {
		for _, ch := range set {
			close(ch)
		}
		delete(h.subs, userID)
	}
	return nil
}
