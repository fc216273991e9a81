package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "othello:"

// RedisSink - publishes events on redis so every server process relays them to its own connections.
type RedisSink struct {
	logger *slog.Logger
	client *redis.Client
	hub    *Hub
}

func NewRedisSink(logger *slog.Logger, client *redis.Client, hub *Hub) *RedisSink {
	return &RedisSink{
		logger: logger.With("component", "notify-redis"),
		client: client,
		hub:    hub,
	}
}

func (that *RedisSink) Publish(ctx context.Context, topic, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}

	message, err := json.Marshal(Event{Topic: topic, Action: event, Payload: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err = that.client.Publish(ctx, channelPrefix+topic, message).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Subscribe - subscriptions are local, the relay in Run delivers to them.
func (that *RedisSink) Subscribe(ctx context.Context, connectionID, topic string) error {
	return that.hub.Subscribe(ctx, connectionID, topic)
}

// Run - relays published events into the local hub until ctx is done.
func (that *RedisSink) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")

	pubsub := that.client.PSubscribe(ctx, channelPrefix+"*")
	defer func() {
		if err := pubsub.Close(); err != nil {
			log.Error("failed to close pubsub", "error", err)
		}
	}()

	// wait for the subscription confirmation so nothing published after Run starts is lost
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case message, ok := <-messages:
			if !ok {
				return nil
			}

			var event Event
			if err := json.Unmarshal([]byte(message.Payload), &event); err != nil {
				log.Error("failed to unmarshal event", "channel", message.Channel, "error", err)
				continue
			}

			event.Topic = strings.TrimPrefix(message.Channel, channelPrefix)
			that.hub.Deliver(event)
		}
	}
}
