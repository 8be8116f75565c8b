package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/move-league/move-league-backend/internal/models"
	"github.com/move-league/move-league-backend/internal/websocket"
	"github.com/move-league/move-league-backend/pkg/distributed"
	"go.uber.org/zap"
)

// Dispatcher delivers notifications emitted by committed transitions.
// Callers log a returned error; it never undoes the transition.
type Dispatcher interface {
	Dispatch(ctx context.Context, notifications []models.Notification) error
}

// Nop drops everything.
type Nop struct{}

func (Nop) Dispatch(context.Context, []models.Notification) error { return nil }

// HubDispatcher pushes notifications to users connected over websocket.
type HubDispatcher struct {
	hub *websocket.Hub
}

func NewHubDispatcher(hub *websocket.Hub) *HubDispatcher {
	return &HubDispatcher{hub: hub}
}

func (d *HubDispatcher) Dispatch(ctx context.Context, notifications []models.Notification) error {
	var errs []error
	for _, n := range notifications {
		if err := d.hub.SendToUser(ctx, n.RecipientID, string(n.Type), n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// QueueDispatcher appends notifications to a Redis list for delivery workers.
type QueueDispatcher struct {
	queue      *distributed.RedisQueue
	maxRetries int
}

func NewQueueDispatcher(queue *distributed.RedisQueue, maxRetries int) *QueueDispatcher {
	return &QueueDispatcher{queue: queue, maxRetries: maxRetries}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, notifications []models.Notification) error {
	payloads := make([]interface{}, len(notifications))
	for i, n := range notifications {
		payloads[i] = n
	}
	return d.queue.EnqueueBatch(ctx, payloads, d.maxRetries)
}

// RelayDispatcher publishes each batch to every server instance. Pair it with
// DeliverRelayed on the subscribing side.
type RelayDispatcher struct {
	relay *distributed.Relay
}

func NewRelayDispatcher(relay *distributed.Relay) *RelayDispatcher {
	return &RelayDispatcher{relay: relay}
}

func (d *RelayDispatcher) Dispatch(ctx context.Context, notifications []models.Notification) error {
	return d.relay.Publish(ctx, notifications)
}

// DeliverRelayed returns a relay handler that decodes a published batch and
// hands it to local.
func DeliverRelayed(local Dispatcher) func(ctx context.Context, msg distributed.RelayMessage) error {
	return func(ctx context.Context, msg distributed.RelayMessage) error {
		var notifications []models.Notification
		if err := json.Unmarshal(msg.Payload, &notifications); err != nil {
			return fmt.Errorf("failed to decode relayed notifications: %w", err)
		}
		return local.Dispatch(ctx, notifications)
	}
}

// Fanout hands every batch to each dispatcher in turn. One failing target
// does not stop the others.
type Fanout struct {
	targets []Dispatcher
	logger  *zap.Logger
}

func NewFanout(logger *zap.Logger, targets ...Dispatcher) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{targets: targets, logger: logger}
}

func (f *Fanout) Dispatch(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	var errs []error
	for _, t := range f.targets {
		if err := t.Dispatch(ctx, notifications); err != nil {
			f.logger.Warn("Notification target failed",
				zap.String("target", targetName(t)),
				zap.Int("count", len(notifications)),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func targetName(d Dispatcher) string {
	switch d.(type) {
	case *HubDispatcher:
		return "websocket"
	case *QueueDispatcher:
		return "redis_queue"
	case *RelayDispatcher:
		return "redis_relay"
	case *Recorder:
		return "recorder"
	}
	return "custom"
}

// Recorder keeps every dispatched batch in memory. Err, when set, is returned
// from Dispatch after recording.
type Recorder struct {
	mu      sync.Mutex
	batches [][]models.Notification
	Err     error
}

func (r *Recorder) Dispatch(_ context.Context, notifications []models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]models.Notification(nil), notifications...))
	return r.Err
}

// All returns every recorded notification in dispatch order.
func (r *Recorder) All() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []models.Notification
	for _, b := range r.batches {
		all = append(all, b...)
	}
	return all
}
