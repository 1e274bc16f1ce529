// Package sse pushes session state, listing changes and navigation commands
// to the extension over Server-Sent Events.
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
	TypeSessionUpdated = "session.updated"
	TypeNotesChanged   = "notes.changed"
	TypeTabNavigate    = "tab.navigate"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Navigate is the payload of tab.navigate.
type Navigate struct {
	TabID int    `json:"tabId"`
	URL   string `json:"url"`
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop owns the client set, the last session payload and the
// notes.changed throttle. Public methods talk to it over channels.
type Broker struct {
	notesMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	notesCh       chan string
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits at most one notes.changed per
// notesThrottle; changes inside the window are folded into one trailing
// event.
func NewBroker(notesThrottle time.Duration) *Broker {
	if notesThrottle <= 0 {
		notesThrottle = 500 * time.Millisecond
	}

	b := &Broker{
		notesMin:      notesThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		notesCh:       make(chan string, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func encode(event Event) ([]byte, bool) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, false
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)), true
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var (
		lastSession  []byte
		lastNotes    time.Time
		pending      []string
		trailing     *time.Timer
		trailingFire <-chan time.Time
	)

	send := func(raw []byte) {
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}
	broadcast := func(event Event) {
		raw, ok := encode(event)
		if !ok {
			return
		}
		if event.Type == TypeSessionUpdated {
			lastSession = raw
		}
		send(raw)
	}
	flushNotes := func() {
		lastNotes = time.Now()
		broadcast(Event{Type: TypeNotesChanged, Data: map[string]any{"urls": pending}})
		pending = nil
	}

	for {
		select {
		case <-b.stopCh:
			if trailing != nil {
				trailing.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}
			if lastSession != nil {
				ch <- lastSession
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case url := <-b.notesCh:
			if url != "" {
				pending = append(pending, url)
			}
			if trailingFire != nil {
				continue
			}
			if wait := b.notesMin - time.Since(lastNotes); wait > 0 {
				trailing = time.NewTimer(wait)
				trailingFire = trailing.C
				continue
			}
			flushNotes()

		case <-trailingFire:
			trailing, trailingFire = nil, nil
			flushNotes()

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel. The latest session
// state, if any, is queued on it first.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
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

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishSession broadcasts the session state and keeps it for clients that
// connect later.
func (b *Broker) PublishSession(state any) {
	b.Publish(Event{Type: TypeSessionUpdated, Data: state})
}

// PublishNavigate asks the extension to load url in tab tabID.
func (b *Broker) PublishNavigate(tabID int, url string) {
	b.Publish(Event{Type: TypeTabNavigate, Data: Navigate{TabID: tabID, URL: url}})
}

// NotesChanged records that the note for url changed (empty url: unknown
// or many) and schedules a throttled notes.changed.
func (b *Broker) NotesChanged(url string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.notesCh <- url:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
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
