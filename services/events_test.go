package services

import (
	"testing"
	"time"
)

func TestEventBus_DeliversToSubscriber(t *testing.T) {
	bus := NewEventBus()
	events, cancel := bus.Subscribe("user-1")
	defer cancel()

	bus.Publish(Event{Kind: EventLevelUp, UserID: "user-1", Payload: map[string]interface{}{"level": 2}})

	select {
	case ev := <-events:
		if ev.Kind != EventLevelUp || ev.UserID != "user-1" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestEventBus_ScopedToUser(t *testing.T) {
	bus := NewEventBus()
	mine, cancelMine := bus.Subscribe("user-1")
	defer cancelMine()
	theirs, cancelTheirs := bus.Subscribe("user-2")
	defer cancelTheirs()

	bus.Publish(Event{Kind: EventBadgeUnlocked, UserID: "user-2"})

	select {
	case <-mine:
		t.Error("user-1 received user-2's event")
	default:
	}
	select {
	case ev := <-theirs:
		if ev.Kind != EventBadgeUnlocked {
			t.Errorf("event kind = %s", ev.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("user-2's event not delivered")
	}
}

func TestEventBus_PublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	bus := NewEventBus()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Publish(Event{Kind: EventRewardGranted, UserID: "nobody"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked with no subscribers")
	}
}

func TestEventBus_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewEventBus()
	_, cancel := bus.Subscribe("user-1")
	defer cancel()

	// Nobody drains the channel; publishes beyond the buffer must drop.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(Event{Kind: EventQuestCompleted, UserID: "user-1"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestEventBus_CancelStopsDelivery(t *testing.T) {
	bus := NewEventBus()
	events, cancel := bus.Subscribe("user-1")
	cancel()

	bus.Publish(Event{Kind: EventLevelUp, UserID: "user-1"})

	// The channel is closed on cancel; a zero-value read means no delivery.
	select {
	case ev, ok := <-events:
		if ok {
			t.Errorf("received %+v after cancel", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
