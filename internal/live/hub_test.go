package live

import (
	"testing"
	"time"
)

func receive(t *testing.T, ch <-chan Event) (Event, bool) {
	t.Helper()
	select {
	case e, ok := <-ch:
		return e, ok
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}, false
	}
}

func TestPublishReachesCommunitySubscribers(t *testing.T) {
	h := NewHub(4)
	ch, cancel := h.Subscribe("c1")
	defer cancel()
	other, cancelOther := h.Subscribe("c2")
	defer cancelOther()

	h.Publish(Event{CommunityID: "c1", Collection: Members, Action: "created", ID: "m1"})

	e, _ := receive(t, ch)
	if e.ID != "m1" || e.Collection != Members {
		t.Errorf("unexpected event %+v", e)
	}

	select {
	case e := <-other:
		t.Errorf("other community received %+v", e)
	default:
	}
}

func TestSubscribeFiltersCollections(t *testing.T) {
	h := NewHub(4)
	ch, cancel := h.Subscribe("c1", Families)
	defer cancel()

	h.Publish(Event{CommunityID: "c1", Collection: Members, Action: "updated"})
	h.Publish(Event{CommunityID: "c1", Collection: Families, Action: "updated", ID: "f1"})

	e, _ := receive(t, ch)
	if e.Collection != Families {
		t.Errorf("got %s event, want families", e.Collection)
	}
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	h := NewHub(1)
	_, cancel := h.Subscribe("c1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for range 10 {
			h.Publish(Event{CommunityID: "c1", Collection: Members})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}

func TestCancelClosesChannel(t *testing.T) {
	h := NewHub(1)
	ch, cancel := h.Subscribe("c1")
	if h.Subscribers("c1") != 1 {
		t.Fatalf("Subscribers() = %d, want 1", h.Subscribers("c1"))
	}

	cancel()
	cancel()

	if _, ok := receive(t, ch); ok {
		t.Error("channel should be closed after cancel")
	}
	if h.Subscribers("c1") != 0 {
		t.Errorf("Subscribers() = %d after cancel, want 0", h.Subscribers("c1"))
	}
}

func TestParseCollection(t *testing.T) {
	if c, ok := ParseCollection("members"); !ok || c != Members {
		t.Errorf("ParseCollection(members) = %q, %v", c, ok)
	}
	if _, ok := ParseCollection("payments"); ok {
		t.Error("payments is not a collection")
	}
}
