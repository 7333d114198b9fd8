package feed

import (
	"encoding/json"
	"sync"

	"appointly/internal/domain"
	"appointly/internal/logger"
)

const sendBuffer = 16

type subscriber struct {
	providerID int64
	date       string // empty: every day
	send       chan []byte
}

// Hub fans availability events out to websocket subscribers of a provider.
// Publish never blocks: a subscriber whose buffer is full is dropped and has
// to reconnect.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int64]map[*subscriber]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int64]map[*subscriber]struct{})}
}

func (h *Hub) subscribe(providerID int64, date string) *subscriber {
	s := &subscriber{providerID: providerID, date: date, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(s.send)
		return s
	}
	set, ok := h.subs[providerID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[providerID] = set
	}
	set[s] = struct{}{}
	return s
}

func (h *Hub) unsubscribe(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

func (h *Hub) removeLocked(s *subscriber) {
	set, ok := h.subs[s.providerID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	close(s.send)
	if len(set) == 0 {
		delete(h.subs, s.providerID)
	}
}

func (h *Hub) Publish(event domain.AvailabilityEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Get().Error().Err(err).Msg("feed: marshal event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs[event.ProviderID] {
		if s.date != "" && event.Date != "" && s.date != event.Date {
			continue
		}
		select {
		case s.send <- payload:
		default:
			logger.Get().Warn().Int64("provider_id", s.providerID).Msg("feed: slow subscriber dropped")
			h.removeLocked(s)
		}
	}
}

// Subscribers reports how many connections follow the provider.
func (h *Hub) Subscribers(providerID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[providerID])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, set := range h.subs {
		for s := range set {
			h.removeLocked(s)
		}
	}
}
