// cmd/historian/historian.go is a standalone drain that pops finished-match
// records from the Redis history queue and persists them to PostgreSQL in
// batches. It lets the game server stay fire-and-forget about persistence.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jordwess/knavery/internal/database"
	"github.com/jordwess/knavery/internal/game"
	"github.com/jordwess/knavery/internal/history"
)

// drain accumulates popped match records and flushes them to the database
// either when the batch fills or on the flush ticker.
type drain struct {
	logger     *logrus.Logger
	batchSize  int
	flushDelay time.Duration

	batchMu sync.Mutex
	batch   []game.Result
}

func newDrain(logger *logrus.Logger) *drain {
	batchSize := 20
	flushDelay := 500 * time.Millisecond
	return &drain{
		logger:     logger,
		batchSize:  batchSize,
		flushDelay: flushDelay,
		batch:      make([]game.Result, 0, batchSize),
	}
}

// run pops from the queue until the context ends, flushing on a timer.
func (d *drain) run(ctx context.Context) {
	ticker := time.NewTicker(d.flushDelay)
	defer ticker.Stop()

	queueName := os.Getenv("HISTORY_QUEUE_NAME")
	if queueName == "" {
		queueName = history.DefaultQueueName
	}

	for {
		select {
		case <-ctx.Done():
			d.flush(context.Background())
			return

		case <-ticker.C:
			d.flush(ctx)

		default:
			// BLPop with a short timeout so ctx cancellation is noticed.
			res, err := history.Rdb.BLPop(ctx, 3*time.Second, queueName).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) || ctx.Err() != nil {
					continue
				}
				d.logger.Errorf("blpop: %v", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			var rec game.Result
			if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
				d.logger.Warnf("invalid match record: %v", err)
				continue
			}
			d.append(ctx, rec)
		}
	}
}

func (d *drain) append(ctx context.Context, rec game.Result) {
	d.batchMu.Lock()
	d.batch = append(d.batch, rec)
	full := len(d.batch) >= d.batchSize
	d.batchMu.Unlock()
	if full {
		d.flush(ctx)
	}
}

// flush writes the pending batch inside a single transaction.
func (d *drain) flush(ctx context.Context) {
	d.batchMu.Lock()
	if len(d.batch) == 0 {
		d.batchMu.Unlock()
		return
	}
	pending := make([]game.Result, len(d.batch))
	copy(pending, d.batch)
	d.batch = d.batch[:0]
	d.batchMu.Unlock()

	tx, err := database.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		d.logger.Errorf("begin tx: %v", err)
		return
	}
	for _, rec := range pending {
		_, err = tx.Exec(ctx, `
			INSERT INTO match_results
				(session_id, room_code, assassinations, knave_slot, knave_escaped, winner, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, rec.SessionID, rec.RoomCode, rec.Assassinations, rec.KnaveSlot, rec.KnaveEscaped, rec.Winner, rec.FinishedAt)
		if err != nil {
			break
		}
	}
	if err != nil {
		d.logger.Errorf("flush: %v", err)
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			d.logger.Errorf("rollback: %v", rbErr)
		}
		return
	}
	if err := tx.Commit(ctx); err != nil {
		d.logger.Errorf("commit: %v", err)
		return
	}
	d.logger.Infof("flushed %d match records", len(pending))
}

func main() {
	logger := logrus.New()

	if err := history.ConnectRedis(); err != nil {
		logger.Fatalf("redis: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := database.ConnectDB(ctx); err != nil {
		logger.Fatalf("db: %v", err)
	}
	defer database.CloseDB()
	if err := database.EnsureSchema(ctx); err != nil {
		logger.Fatalf("db schema: %v", err)
	}

	d := newDrain(logger)
	go d.run(ctx)
	logger.Info("historian drain started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	cancel()
	time.Sleep(d.flushDelay)
	logger.Info("historian drain stopped")
}
