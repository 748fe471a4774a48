package services

import (
	"log"
	"sync"
	"time"
)

// EventKind enumerates the domain events the engine publishes.
type EventKind string

const (
	EventLevelUp       EventKind = "level_up"
	EventPrestigeUp    EventKind = "prestige_up"
	EventQuestCompleted EventKind = "quest_completed"
	EventRewardGranted EventKind = "reward_granted"
	EventBadgeUnlocked EventKind = "badge_unlocked"
	EventSeasonLevelUp EventKind = "season_level_up"
)

// Event is one domain event addressed to a single user.
type Event struct {
	Kind       EventKind              `json:"kind"`
	UserID     string                 `json:"user_id"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// EventBus fans domain events out to per-user subscribers (the SSE stream,
// notification dispatch). Publishing never blocks: a subscriber that cannot
// keep up has events dropped, and engine correctness never depends on any
// subscriber being present.
type EventBus struct {
	mu   sync.RWMutex
	subs map[string][]chan Event // keyed by user id
}

func NewEventBus() *EventBus {
	return &EventBus{subs: map[string][]chan Event{}}
}

// Publish delivers to every subscriber of ev.UserID without blocking.
func (b *EventBus) Publish(ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[ev.UserID] {
		select {
		case ch <- ev:
		default:
			log.Printf("⚠️ [EVENTS] Dropping %s event for slow subscriber (user %s)", ev.Kind, ev.UserID)
		}
	}
}

// Subscribe registers a buffered channel for one user's events. The caller
// must call the returned cancel func when done.
func (b *EventBus) Subscribe(userID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[userID] = append(b.subs[userID], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		chans := b.subs[userID]
		for i, c := range chans {
			if c == ch {
				b.subs[userID] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		if len(b.subs[userID]) == 0 {
			delete(b.subs, userID)
		}
		close(ch)
	}
	return ch, cancel
}
