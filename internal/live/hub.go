// Package live fans out change notifications for a community to subscribers
// such as server-sent event streams.
package live

import (
	"log/slog"
	"slices"
	"sync"
)

// Collection names a set of documents inside a community
type Collection string

const (
	Members       Collection = "members"
	Families      Collection = "families"
	Contributions Collection = "contributions"
	Settings      Collection = "settings"
	Invitations   Collection = "invitations"
)

// ParseCollection returns the collection named s
func ParseCollection(s string) (Collection, bool) {
	c := Collection(s)
	switch c {
	case Members, Families, Contributions, Settings, Invitations:
		return c, true
	}
	return "", false
}

// Event describes a committed write
type Event struct {
	CommunityID string     `json:"communityId"`
	Collection  Collection `json:"collection"`
	Action      string     `json:"action"` // created, updated, deleted
	ID          string     `json:"id,omitempty"`
}

type subscriber struct {
	ch          chan Event
	collections []Collection
}

func (s *subscriber) wants(c Collection) bool {
	return len(s.collections) == 0 || slices.Contains(s.collections, c)
}

// Hub delivers events to subscribers of the same community.
// Slow subscribers miss events instead of blocking publishers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	buffer int
}

// NewHub creates a hub whose subscriber channels hold buffer events
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers for events of communityID, filtered to collections
// when any are given. The returned cancel func unsubscribes and closes the
// channel; it is safe to call more than once.
func (h *Hub) Subscribe(communityID string, collections ...Collection) (<-chan Event, func()) {
	sub := &subscriber{
		ch:          make(chan Event, h.buffer),
		collections: collections,
	}

	h.mu.Lock()
	if h.subs[communityID] == nil {
		h.subs[communityID] = make(map[*subscriber]struct{})
	}
	h.subs[communityID][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[communityID], sub)
			if len(h.subs[communityID]) == 0 {
				delete(h.subs, communityID)
			}
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish sends e to every interested subscriber without blocking
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[e.CommunityID] {
		if !sub.wants(e.Collection) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			slog.Warn("Dropping live event for slow subscriber",
				"community_id", e.CommunityID, "collection", e.Collection)
		}
	}
}

// Subscribers returns the number of subscribers for communityID
func (h *Hub) Subscribers(communityID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[communityID])
}
