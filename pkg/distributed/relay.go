package distributed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RelayMessage is one published payload tagged with the publishing instance.
type RelayMessage struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

// Relay broadcasts payloads to every server instance over Redis Pub/Sub.
// Each instance subscribes and hands messages to its own handler, so a user
// connected to any instance receives events raised on any other.
type Relay struct {
	client     *redis.Client
	channel    string
	logger     *zap.Logger
	instanceID string
}

func NewRelay(client *redis.Client, channel string, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		client:     client,
		channel:    channel,
		logger:     logger,
		instanceID: uuid.New().String(),
	}
}

// InstanceID identifies this process on the channel.
func (r *Relay) InstanceID() string {
	return r.instanceID
}

// Publish sends payload to all subscribers, including this instance.
func (r *Relay) Publish(ctx context.Context, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal relay payload: %w", err)
	}

	data, err := json.Marshal(RelayMessage{Origin: r.instanceID, Payload: raw})
	if err != nil {
		return fmt.Errorf("failed to marshal relay message: %w", err)
	}

	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish relay message: %w", err)
	}
	return nil
}

// Run subscribes and calls handler for each message until ctx is done.
// Handler errors are logged and do not stop the loop.
func (r *Relay) Run(ctx context.Context, handler func(ctx context.Context, msg RelayMessage) error) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	r.logger.Info("Relay subscribed",
		zap.String("instance_id", r.instanceID),
		zap.String("channel", r.channel))

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var relayed RelayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &relayed); err != nil {
				r.logger.Error("Failed to unmarshal relay message", zap.Error(err))
				continue
			}

			if err := handler(ctx, relayed); err != nil {
				r.logger.Warn("Relay handler failed",
					zap.String("origin", relayed.Origin),
					zap.Error(err))
			}

		case <-ctx.Done():
			r.logger.Info("Relay stopped", zap.String("instance_id", r.instanceID))
			return nil
		}
	}
}
