package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mmanyinorie/internal/live"
	"mmanyinorie/internal/metrics"
	"mmanyinorie/internal/service"
)

// EventsHandler streams a community's change notifications as server-sent events
type EventsHandler struct {
	communities *service.CommunityService
	hub         *live.Hub
	metrics     *metrics.Metrics
	heartbeat   time.Duration
}

// NewEventsHandler creates a new events handler. m may be nil.
func NewEventsHandler(communities *service.CommunityService, hub *live.Hub, m *metrics.Metrics, heartbeat time.Duration) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &EventsHandler{
		communities: communities,
		hub:         hub,
		metrics:     m,
		heartbeat:   heartbeat,
	}
}

func parseCollections(raw string) ([]live.Collection, error) {
	if raw == "" {
		return nil, nil
	}
	var out []live.Collection
	for _, part := range strings.Split(raw, ",") {
		c, ok := live.ParseCollection(strings.TrimSpace(part))
		if !ok {
			return nil, fmt.Errorf("unknown collection %q", part)
		}
		out = append(out, c)
	}
	return out, nil
}

// Stream holds the connection open and writes one event per committed write
// in the {cid} community. ?collections=members,families narrows the stream.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	cu, ok := resolveMembership(w, r, h.communities)
	if !ok {
		return
	}
	collections, err := parseCollections(r.URL.Query().Get("collections"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	rc := http.NewResponseController(w)
	// streams outlive the server's write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	events, cancel := h.hub.Subscribe(cu.CommunityID, collections...)
	defer cancel()
	defer h.metrics.StreamOpened()()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		slog.Warn("Streaming unsupported", "error", err)
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				slog.Warn("Failed to encode event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Collection, data)
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
