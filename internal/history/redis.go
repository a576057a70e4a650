// internal/history/redis.go
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jordwess/knavery/internal/game"
)

// Rdb is the shared Redis client. Connect it once at startup; while nil the
// history sink is simply disabled.
var Rdb *redis.Client

// DefaultQueueName is the Redis list that finished matches are pushed onto
// for an out-of-process consumer.
var DefaultQueueName = "knavery_matches"

// ConnectRedis initializes the client from environment variables:
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
		Rdb = nil
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// Enabled reports whether the sink is connected.
func Enabled() bool {
	return Rdb != nil
}

// PublishMatchResult serializes the result and pushes it onto the queue.
func PublishMatchResult(ctx context.Context, res game.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal match result: %w", err)
	}

	queueName := getEnv("HISTORY_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list %q: %w", queueName, err)
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

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
