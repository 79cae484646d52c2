// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for activity feed records.
var DefaultQueueName = "classbank_activity"

// ActivityRecord is the JSON shape pushed to the feed queue. An
// out-of-process consumer renders it into human-readable feed text.
type ActivityRecord struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishActivity serializes the record to JSON and pushes it onto the
// feed queue. Quick network send, nothing more.
func PublishActivity(ctx context.Context, record ActivityRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal ActivityRecord: %w", err)
	}

	queueName := getEnv("ACTIVITY_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// Cooldown implements ledger.Cooldown over Redis: SET NX EX opens a
// per-sender window that expires on its own, so there is no state to
// clean up and concurrent reserves cannot both succeed.
type Cooldown struct {
	Window time.Duration
}

// NewCooldown builds a Redis-backed cooldown with the given window.
func NewCooldown(window time.Duration) *Cooldown {
	return &Cooldown{Window: window}
}

// Reserve opens a window for the account; false while one is active.
func (c *Cooldown) Reserve(ctx context.Context, account uuid.UUID) (bool, error) {
	ok, err := Rdb.SetNX(ctx, cooldownKey(account), 1, c.Window).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown reserve failed: %w", err)
	}
	return ok, nil
}

// Release deletes the account's window so a failed transfer does not
// consume it.
func (c *Cooldown) Release(ctx context.Context, account uuid.UUID) error {
	if err := Rdb.Del(ctx, cooldownKey(account)).Err(); err != nil {
		return fmt.Errorf("cooldown release failed: %w", err)
	}
	return nil
}

func cooldownKey(account uuid.UUID) string {
	return "classbank:cooldown:" + account.String()
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
