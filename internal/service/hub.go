package service

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/forgo/muster/internal/model"
)

// EventType represents the type of event
type EventType string

const (
	// Roster events
	EventRosterUpdated  EventType = "roster.updated"
	EventRosterClosed   EventType = "roster.closed"
	EventRosterRemoved  EventType = "roster.removed"
	EventRosterPromoted EventType = "roster.promoted"

	// System events
	EventHeartbeat EventType = "heartbeat"
)

const (
	subscriberBuffer  = 100
	heartbeatInterval = 30 * time.Second
)

// Event represents a server-sent event
type Event struct {
	Type     EventType   `json:"type"`
	Data     interface{} `json:"data"`
	RosterID string      `json:"-"` // Used for routing, not sent to client
}

// Format returns the SSE formatted string
func (e *Event) Format() string {
	data, _ := json.Marshal(e.Data)
	return "event: " + string(e.Type) + "\ndata: " + string(data) + "\n\n"
}

// Subscriber represents a connected SSE client
type Subscriber struct {
	ID       string
	RosterID string
	Events   chan *Event
	Done     chan struct{}
}

// RosterHub fans roster snapshots out to SSE subscribers. Publishing never
// blocks: a subscriber whose buffer is full misses the event.
type RosterHub struct {
	mu              sync.RWMutex
	subscribers     map[string]map[string]*Subscriber // rosterID -> subscriberID -> subscriber
	userSubscribers map[string]map[string]*Subscriber // userID -> subscriberID -> subscriber
	versions        map[string]uint64                 // rosterID -> last published snapshot version
	heartbeat       *time.Ticker
	done            chan struct{}
	closeOnce       sync.Once
}

// NewRosterHub creates a hub and starts its heartbeat
func NewRosterHub() *RosterHub {
	return newRosterHub(heartbeatInterval)
}

func newRosterHub(interval time.Duration) *RosterHub {
	hub := &RosterHub{
		subscribers:     make(map[string]map[string]*Subscriber),
		userSubscribers: make(map[string]map[string]*Subscriber),
		versions:        make(map[string]uint64),
		heartbeat:       time.NewTicker(interval),
		done:            make(chan struct{}),
	}
	go hub.sendHeartbeats()
	return hub
}

// Subscribe adds a new subscriber for a roster
func (h *RosterHub) Subscribe(rosterID, subscriberID string) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	return addSubscriber(h.subscribers, rosterID, subscriberID, rosterID)
}

// Unsubscribe removes a roster subscriber
func (h *RosterHub) Unsubscribe(rosterID, subscriberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	removeSubscriber(h.subscribers, rosterID, subscriberID)
}

// Publish sends an event to all subscribers of its roster
func (h *RosterHub) Publish(event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fanOut(h.subscribers[event.RosterID], event)
}

// SubscribeUser adds a new subscriber for user-directed events
func (h *RosterHub) SubscribeUser(userID, subscriberID string) *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	return addSubscriber(h.userSubscribers, userID, subscriberID, "")
}

// UnsubscribeUser removes a user subscriber
func (h *RosterHub) UnsubscribeUser(userID, subscriberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	removeSubscriber(h.userSubscribers, userID, subscriberID)
}

// SendToUser sends an event to all subscribers of a specific user
func (h *RosterHub) SendToUser(userID string, event *Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fanOut(h.userSubscribers[userID], event)
}

// PublishSnapshot implements SnapshotSink. Snapshots reach the hub after
// the roster lock is released, so a view older than the last one published
// for its roster is dropped. Version 0 marks an unversioned view.
func (h *RosterHub) PublishSnapshot(view *model.RosterView) {
	eventType := EventRosterUpdated
	if view.Closed {
		eventType = EventRosterClosed
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if view.Version != 0 {
		if view.Version <= h.versions[view.ID] {
			return
		}
		h.versions[view.ID] = view.Version
	}
	fanOut(h.subscribers[view.ID], &Event{Type: eventType, RosterID: view.ID, Data: view})
}

// PublishRemoved implements SnapshotSink
func (h *RosterHub) PublishRemoved(rosterID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.versions, rosterID)
	fanOut(h.subscribers[rosterID], &Event{
		Type:     EventRosterRemoved,
		RosterID: rosterID,
		Data:     map[string]string{"id": rosterID},
	})
}

// LastVersion returns the version of the newest snapshot published for a
// roster, or 0 when none was.
func (h *RosterHub) LastVersion(rosterID string) uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.versions[rosterID]
}

func (h *RosterHub) sendHeartbeats() {
	for {
		select {
		case <-h.heartbeat.C:
			event := &Event{
				Type: EventHeartbeat,
				Data: map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				},
			}
			h.mu.RLock()
			for _, subs := range h.subscribers {
				fanOut(subs, event)
			}
			for _, subs := range h.userSubscribers {
				fanOut(subs, event)
			}
			h.mu.RUnlock()
		case <-h.done:
			return
		}
	}
}

// Close stops the heartbeat and disconnects every subscriber
func (h *RosterHub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.heartbeat.Stop()

		h.mu.Lock()
		defer h.mu.Unlock()

		for _, group := range []map[string]map[string]*Subscriber{h.subscribers, h.userSubscribers} {
			for key, subs := range group {
				for _, sub := range subs {
					close(sub.Done)
					close(sub.Events)
				}
				delete(group, key)
			}
		}
	})
}

// SubscriberCount returns the number of subscribers for a roster
func (h *RosterHub) SubscriberCount(rosterID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[rosterID])
}

// UserSubscriberCount returns the number of subscribers for a user
func (h *RosterHub) UserSubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userSubscribers[userID])
}

func addSubscriber(group map[string]map[string]*Subscriber, key, subscriberID, rosterID string) *Subscriber {
	sub := &Subscriber{
		ID:       subscriberID,
		RosterID: rosterID,
		Events:   make(chan *Event, subscriberBuffer),
		Done:     make(chan struct{}),
	}
	if group[key] == nil {
		group[key] = make(map[string]*Subscriber)
	}
	if old, ok := group[key][subscriberID]; ok {
		close(old.Done)
		close(old.Events)
	}
	group[key][subscriberID] = sub
	return sub
}

func removeSubscriber(group map[string]map[string]*Subscriber, key, subscriberID string) {
	subs, ok := group[key]
	if !ok {
		return
	}
	if sub, ok := subs[subscriberID]; ok {
		close(sub.Done)
		close(sub.Events)
		delete(subs, subscriberID)
	}
	if len(subs) == 0 {
		delete(group, key)
	}
}

func fanOut(subs map[string]*Subscriber, event *Event) {
	for _, sub := range subs {
		select {
		case sub.Events <- event:
		default:
			// Buffer full, skip this subscriber
		}
	}
}
