package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Channel is one logical event stream. Each domain writes to its own
// channel; clients subscribe per channel.
type Channel string

const (
	ChannelHabits   Channel = "habits"
	ChannelStreaks  Channel = "streaks"
	ChannelInsights Channel = "insights"
	ChannelScans    Channel = "scans"
	ChannelPosts    Channel = "posts"
)

// Event is what subscribers receive. Delivery is at-least-once: the
// same event may be observed more than once after a reconnect, so
// handlers must dedupe on ID.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Channel   Channel         `json:"channel"`
	Kind      string          `json:"kind"` // insert, update, delete
	UserID    uuid.UUID       `json:"user_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Subscription is an explicit handle. Callers own the lifecycle and
// must call Unsubscribe on teardown.
type Subscription struct {
	C   <-chan Event
	hub *Hub
	ch  Channel
	id  uuid.UUID
}

func (s *Subscription) Unsubscribe() {
	s.hub.unsubscribe(s.ch, s.id)
}

// Hub is an in-process publish/subscribe fan-out, one buffered channel
// per subscriber. A slow subscriber drops events rather than blocking
// publishers; the websocket layer resends on reconnect, which is where
// the at-least-once (and occasionally duplicate) delivery comes from.
type Hub struct {
	mu   sync.RWMutex
	subs map[Channel]map[uuid.UUID]chan Event
}

func NewHub() *Hub {
	return &Hub{subs: make(map[Channel]map[uuid.UUID]chan Event)}
}

func (h *Hub) Subscribe(ch Channel) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[ch] == nil {
		h.subs[ch] = make(map[uuid.UUID]chan Event)
	}
	id := uuid.New()
	c := make(chan Event, 64)
	h.subs[ch][id] = c

	return &Subscription{C: c, hub: h, ch: ch, id: id}
}

func (h *Hub) unsubscribe(ch Channel, id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if m, ok := h.subs[ch]; ok {
		if c, ok := m[id]; ok {
			delete(m, id)
			close(c)
		}
	}
}

// Publish assigns the event ID and timestamp and fans out. Publish on
// a nil hub is a no-op so services can be constructed without one.
func (h *Hub) Publish(ch Channel, kind string, userID uuid.UUID, payload interface{}) {
	if h == nil {
		return
	}

	event := Event{
		ID:        uuid.New(),
		Channel:   ch,
		Kind:      kind,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			event.Payload = b
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.subs[ch] {
		select {
		case c <- event:
		default:
			// subscriber buffer full, drop
		}
	}
}

// Deduper tracks seen event IDs so at-least-once consumers stay
// idempotent. Oldest entries are evicted once cap is reached.
type Deduper struct {
	mu    sync.Mutex
	seen  map[uuid.UUID]struct{}
	order []uuid.UUID
	cap   int
}

func NewDeduper(capacity int) *Deduper {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Deduper{
		seen: make(map[uuid.UUID]struct{}, capacity),
		cap:  capacity,
	}
}

// Seen marks the ID and reports whether it was already recorded.
func (d *Deduper) Seen(id uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	if len(d.order) > d.cap {
		evict := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, evict)
	}
	return false
}
