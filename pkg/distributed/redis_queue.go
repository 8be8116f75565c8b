package distributed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrQueueEmpty = errors.New("queue is empty")
	ErrQueueFull  = errors.New("queue is full")
)

// QueueItem is one message on a RedisQueue.
type QueueItem struct {
	ID         string          `json:"id"`
	Payload    json.RawMessage `json:"payload"`
	Retries    int             `json:"retries"`
	MaxRetries int             `json:"max_retries"`
	CreatedAt  time.Time       `json:"created_at"`
}

// RedisQueue is a FIFO list with a processing hash and a dead letter list.
// Consumers Dequeue, then Complete or Retry.
type RedisQueue struct {
	client        *redis.Client
	queueKey      string
	processingKey string
	dlqKey        string
	maxSize       int
}

// NewRedisQueue creates a queue; maxSize 0 means unbounded.
func NewRedisQueue(client *redis.Client, queueName string, maxSize int) *RedisQueue {
	return &RedisQueue{
		client:        client,
		queueKey:      fmt.Sprintf("queue:%s", queueName),
		processingKey: fmt.Sprintf("queue:%s:processing", queueName),
		dlqKey:        fmt.Sprintf("queue:%s:dlq", queueName),
		maxSize:       maxSize,
	}
}

// EnqueueBatch appends payloads in order with a single round trip.
func (q *RedisQueue) EnqueueBatch(ctx context.Context, payloads []interface{}, maxRetries int) error {
	if len(payloads) == 0 {
		return nil
	}

	if q.maxSize > 0 {
		size, err := q.client.LLen(ctx, q.queueKey).Result()
		if err != nil {
			return fmt.Errorf("failed to get queue size: %w", err)
		}
		if int(size)+len(payloads) > q.maxSize {
			return ErrQueueFull
		}
	}

	now := time.Now().UTC()
	values := make([]interface{}, 0, len(payloads))
	for _, p := range payloads {
		raw, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		data, err := json.Marshal(&QueueItem{
			ID:         uuid.NewString(),
			Payload:    raw,
			MaxRetries: maxRetries,
			CreatedAt:  now,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal item: %w", err)
		}
		values = append(values, data)
	}

	if err := q.client.RPush(ctx, q.queueKey, values...).Err(); err != nil {
		return fmt.Errorf("failed to enqueue: %w", err)
	}
	return nil
}

var dequeueScript = redis.NewScript(`
	local item = redis.call('LPOP', KEYS[1])
	if not item then
		return nil
	end
	local id = cjson.decode(item).id
	redis.call('HSET', KEYS[2], id, item)
	return item
`)

// Dequeue moves the oldest item into the processing hash and returns it.
func (q *RedisQueue) Dequeue(ctx context.Context) (*QueueItem, error) {
	result, err := dequeueScript.Run(ctx, q.client, []string{q.queueKey, q.processingKey}).Text()
	if err == redis.Nil {
		return nil, ErrQueueEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	var item QueueItem
	if err := json.Unmarshal([]byte(result), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return &item, nil
}

func (q *RedisQueue) Complete(ctx context.Context, itemID string) error {
	if err := q.client.HDel(ctx, q.processingKey, itemID).Err(); err != nil {
		return fmt.Errorf("failed to complete item: %w", err)
	}
	return nil
}

// Retry requeues the item at the tail, or dead-letters it once retries run out.
func (q *RedisQueue) Retry(ctx context.Context, item *QueueItem) error {
	item.Retries++
	if item.Retries >= item.MaxRetries {
		return q.moveToDLQ(ctx, item)
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.HDel(ctx, q.processingKey, item.ID)
	pipe.RPush(ctx, q.queueKey, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to retry item: %w", err)
	}
	return nil
}

func (q *RedisQueue) moveToDLQ(ctx context.Context, item *QueueItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ item: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.HDel(ctx, q.processingKey, item.ID)
	pipe.LPush(ctx, q.dlqKey, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to move to DLQ: %w", err)
	}
	return nil
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueKey).Result()
}

func (q *RedisQueue) DLQLen(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.dlqKey).Result()
}
