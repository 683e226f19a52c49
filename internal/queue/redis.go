package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"marketsync-api/internal/model"

	"github.com/redis/go-redis/v9"
)

// RedisSyncQueue is a Redis-list implementation of SyncQueue. It survives
// process restarts, so pending syncs accumulated by the aggregator are
// not lost between the reconciliation sweep and the inventory drain.
type RedisSyncQueue struct {
	client *redis.Client
	key    string
}

// RedisQueueConfig holds configuration for the Redis queue.
type RedisQueueConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// NewRedisSyncQueue creates a Redis-backed sync queue.
func NewRedisSyncQueue(cfg RedisQueueConfig) (*RedisSyncQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	key := cfg.Key
	if key == "" {
		key = "marketsync:pending_sync"
	}

	log.Printf("[RedisSyncQueue] Started - DB:%d, key:%s", cfg.DB, key)
	return &RedisSyncQueue{client: client, key: key}, nil
}

// Enqueue appends pending syncs to the queue.
func (q *RedisSyncQueue) Enqueue(ctx context.Context, items ...model.PendingSync) error {
	if len(items) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return err
		}
		values = append(values, data)
	}

	return q.client.RPush(ctx, q.key, values...).Err()
}

// Dequeue removes and returns up to max items, oldest first.
func (q *RedisSyncQueue) Dequeue(ctx context.Context, max int) ([]model.PendingSync, error) {
	if max <= 0 {
		return nil, nil
	}

	raw, err := q.client.LPopCount(ctx, q.key, max).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	items := make([]model.PendingSync, 0, len(raw))
	for _, r := range raw {
		var item model.PendingSync
		if err := json.Unmarshal([]byte(r), &item); err != nil {
			log.Printf("[RedisSyncQueue] Dropping unparseable entry: %v", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Len returns the number of queued items.
func (q *RedisSyncQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Close closes the Redis connection.
func (q *RedisSyncQueue) Close() error {
	return q.client.Close()
}

// Ensure RedisSyncQueue implements SyncQueue
var _ SyncQueue = (*RedisSyncQueue)(nil)
