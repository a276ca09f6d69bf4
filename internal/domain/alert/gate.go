package alert

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultWindow is how long a semantically identical event stays suppressed
// after an emission.
const DefaultWindow = 3500 * time.Millisecond

// Sink receives the events that pass the gate. Consumers render them; there
// is no way to pull historical events back out.
type Sink interface {
	OnEvent(eventType, title, body string)
}

// Gate decides emit-or-suppress for user-facing alerts keyed by semantic
// content. Two layers: a sliding time window per key, and an optional
// session-scoped set for categories where repetition has no value. Emission
// depends only on content and the clock, never on call frequency: two rapid
// calls with the same key collapse to one event.
type Gate struct {
	mu       sync.Mutex
	window   time.Duration
	clock    func() time.Time
	lastEmit map[string]time.Time
	session  map[string]struct{}
	sink     Sink
}

// New creates a gate with the default window and wall clock
func New(sink Sink) *Gate {
	return NewWithClock(sink, DefaultWindow, time.Now)
}

// NewWithClock creates a gate with an explicit window and clock, for tests
// and non-default tuning
func NewWithClock(sink Sink, window time.Duration, clock func() time.Time) *Gate {
	return &Gate{
		window:   window,
		clock:    clock,
		lastEmit: make(map[string]time.Time),
		session:  make(map[string]struct{}),
		sink:     sink,
	}
}

func eventKey(eventType, title, body string) string {
	return eventType + "|" + title + "|" + body
}

// Notify emits the event unless an identical one was emitted inside the
// window. Returns whether the event reached the sink. The timestamp refreshes
// only on emission, so a steady stream of duplicates re-emits once per window
// rather than never.
func (g *Gate) Notify(eventType, title, body string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.emit(eventKey(eventType, title, body), eventType, title, body)
}

// NotifyOnce emits the event at most once per session, on top of the window
// check. Used for alerts that are pointless to repeat until Reset.
func (g *Gate) NotifyOnce(eventType, title, body string) bool {
	key := eventKey(eventType, title, body)

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, seen := g.session[key]; seen {
		return false
	}
	if !g.emit(key, eventType, title, body) {
		return false
	}
	g.session[key] = struct{}{}
	return true
}

// Reset clears both suppression layers. Call at session start.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastEmit = make(map[string]time.Time)
	g.session = make(map[string]struct{})
}

// emit runs the window check and pushes to the sink; caller holds the lock.
func (g *Gate) emit(key, eventType, title, body string) bool {
	now := g.clock()
	g.purge(now)

	if last, ok := g.lastEmit[key]; ok && now.Sub(last) < g.window {
		log.Debug().Str("type", eventType).Str("title", title).Msg("Alert suppressed by dedup window")
		return false
	}

	g.lastEmit[key] = now
	if g.sink != nil {
		g.sink.OnEvent(eventType, title, body)
	}
	return true
}

// purge drops window entries that can no longer suppress anything, bounding
// memory without a background timer.
func (g *Gate) purge(now time.Time) {
	for key, last := range g.lastEmit {
		if now.Sub(last) >= g.window {
			delete(g.lastEmit, key)
		}
	}
}
