package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

const defaultBufferSize = 64

var ErrUnknownConnection = errors.New("connection is not registered")

// Subscriber is one registered connection. Events is closed on Unregister.
type Subscriber struct {
	ConnectionID string
	events       chan Event
}

func (that *Subscriber) Events() <-chan Event {
	return that.events
}

// Hub - in-process fan-out of events to registered connections.
type Hub struct {
	logger     *slog.Logger
	bufferSize int

	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	topics      map[string]map[string]*Subscriber
}

func NewHub(logger *slog.Logger, bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	return &Hub{
		logger:      logger.With("component", "notify-hub"),
		bufferSize:  bufferSize,
		subscribers: make(map[string]*Subscriber),
		topics:      make(map[string]map[string]*Subscriber),
	}
}

// Register - adds a connection and subscribes it to its private topic.
func (that *Hub) Register(connectionID string) *Subscriber {
	that.mu.Lock()
	defer that.mu.Unlock()

	if existing, ok := that.subscribers[connectionID]; ok {
		return existing
	}

	subscriber := &Subscriber{
		ConnectionID: connectionID,
		events:       make(chan Event, that.bufferSize),
	}
	that.subscribers[connectionID] = subscriber
	that.addToTopic(ConnectionTopic(connectionID), subscriber)

	return subscriber
}

func (that *Hub) Unregister(connectionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	subscriber, ok := that.subscribers[connectionID]
	if !ok {
		return
	}

	for topic, members := range that.topics {
		delete(members, connectionID)
		if len(members) == 0 {
			delete(that.topics, topic)
		}
	}

	delete(that.subscribers, connectionID)
	close(subscriber.events)
}

func (that *Hub) Subscribe(_ context.Context, connectionID, topic string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	subscriber, ok := that.subscribers[connectionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownConnection, connectionID)
	}

	that.addToTopic(topic, subscriber)

	return nil
}

func (that *Hub) Publish(_ context.Context, topic, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}

	that.Deliver(Event{Topic: topic, Action: event, Payload: data})

	return nil
}

// Deliver - hands the event to every subscriber of its topic without blocking.
// A subscriber with a full buffer has missed an event, so it is unregistered and its
// connection closes; the client reconnects and reloads the match state.
func (that *Hub) Deliver(event Event) {
	var slow []string

	that.mu.RLock()
	for connectionID, subscriber := range that.topics[event.Topic] {
		select {
		case subscriber.events <- event:
		default:
			slow = append(slow, connectionID)
		}
	}
	that.mu.RUnlock()

	for _, connectionID := range slow {
		that.logger.Warn("subscriber buffer is full, dropping connection",
			"connectionID", connectionID, "topic", event.Topic, "action", event.Action)
		that.Unregister(connectionID)
	}
}

func (that *Hub) addToTopic(topic string, subscriber *Subscriber) {
	members, ok := that.topics[topic]
	if !ok {
		members = make(map[string]*Subscriber)
		that.topics[topic] = members
	}

	members[subscriber.ConnectionID] = subscriber
}
