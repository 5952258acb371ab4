// Package sse implements a Server-Sent Events broker for live board updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeWorkspaceUpdated = "workspace.updated"
	TypeWorkspaceChanged = "workspace.changed"
	TypeBoardRefresh     = "board.refresh"
)

// Event represents an SSE event to broadcast. A non-empty UserID limits
// delivery to clients watching that user's board and to unfiltered clients.
type Event struct {
	Type   string `json:"type"`
	UserID string `json:"-"`
	Data   any    `json:"data"`
}

type workspaceEventReq struct {
	kind   string
	userID string
}

type subscription struct {
	ch     chan []byte
	userID string
}

// accepts reports whether the subscriber should see e. Unfiltered
// subscribers and untargeted events match everything.
func (s subscription) accepts(e Event) bool {
	return s.userID == "" || e.UserID == "" || s.userID == e.UserID
}

// Broker fans board events out to SSE subscribers.
//
// A single internal event loop owns the client set and the per-user refresh
// throttle; public methods talk to it over channels.
type Broker struct {
	refreshMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	workspaceCh   chan workspaceEventReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits board.refresh at most once per
// refreshThrottle for each user.
func NewBroker(refreshThrottle time.Duration) *Broker {
	if refreshThrottle <= 0 {
		refreshThrottle = 2 * time.Second
	}

	b := &Broker{
		refreshMin:    refreshThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		workspaceCh:   make(chan workspaceEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]subscription)
	lastRefresh := make(map[string]time.Time)

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch, sub := range clients {
			if !sub.accepts(event) {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Slow subscriber: drop the event for it.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.workspaceCh:
			data := map[string]string{"userId": req.userID}
			switch req.kind {
			case "updated":
				broadcast(Event{Type: TypeWorkspaceUpdated, UserID: req.userID, Data: data})
			case "changed":
				broadcast(Event{Type: TypeWorkspaceChanged, UserID: req.userID, Data: data})
			}

			now := time.Now()
			if now.Sub(lastRefresh[req.userID]) >= b.refreshMin {
				lastRefresh[req.userID] = now
				broadcast(Event{Type: TypeBoardRefresh, UserID: req.userID, Data: data})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the event loop and closes every subscriber channel. It is
// safe to call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client and returns its channel. An empty userID
// receives every event.
func (b *Broker) Subscribe(userID string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, userID: userID}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe drops the subscriber and closes ch.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount reports how many subscribers are attached.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to matching clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishWorkspaceEvent announces a stored board change. kind is "updated"
// for saves through the API and "changed" for cache files modified on disk.
// A throttled board.refresh follows.
func (b *Broker) PublishWorkspaceEvent(kind, userID string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.workspaceCh <- workspaceEventReq{kind: kind, userID: userID}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events?userId=...).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(r.URL.Query().Get("userId"))
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
