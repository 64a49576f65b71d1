package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mtgstats-backend/internal/components/assert"
	"mtgstats-backend/internal/components/telemetry"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	report_redis_dequeue = "redis.dequeue"
	report_redis_promote = "redis.promote"
)

// RedisBroker shares jobs between processes through a redis list, delayed
// jobs wait in a sorted set scored by the unix millisecond they are due.
type RedisBroker struct {
	client       *redis.Client
	readyKey     string
	delayedKey   string
	pollInterval time.Duration
	tel          telemetry.API
}

type RedisOptions struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	// Prefix namespaces the keys of the broker, it defaults to "mtgstats:jobs".
	Prefix string `json:"prefix"`
}

func NewRedisBroker(opts RedisOptions, tel telemetry.API) *RedisBroker {
	assert.NotNil(tel)

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "mtgstats:jobs"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &RedisBroker{
		client:       client,
		readyKey:     prefix + ":ready",
		delayedKey:   prefix + ":delayed",
		pollInterval: time.Second,
		tel:          telemetry.NewScopedAPI("jobs", tel),
	}
}

func (b *RedisBroker) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBroker) Enqueue(ctx context.Context, job Job, delay time.Duration) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if delay <= 0 {
		return b.client.LPush(ctx, b.readyKey, encoded).Err()
	}
	due := time.Now().Add(delay).UnixMilli()
	return b.client.ZAdd(ctx, b.delayedKey, redis.Z{
		Score:  float64(due),
		Member: encoded,
	}).Err()
}

// promote moves the delayed jobs that are due to the ready list. Only the
// process that removes a job from the sorted set pushes it.
func (b *RedisBroker) promote(ctx context.Context) error {
	due, err := b.client.ZRangeByScore(ctx, b.delayedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().UnixMilli(), 10),
	}).Result()
	if err != nil {
		return err
	}
	for _, member := range due {
		removed, err := b.client.ZRem(ctx, b.delayedKey, member).Result()
		if err != nil {
			return err
		}
		if removed == 0 {
			continue
		}
		err = b.client.LPush(ctx, b.readyKey, member).Err()
		if err != nil {
			return err
		}
	}
	return nil
}

// Dequeue starts polling redis, the returned channel is closed when ctx is done.
func (b *RedisBroker) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for ctx.Err() == nil {
			err := b.promote(ctx)
			if err != nil && ctx.Err() == nil {
				b.tel.ReportWarning(report_redis_promote, err)
			}

			result, err := b.client.BRPop(ctx, b.pollInterval, b.readyKey).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				b.tel.ReportWarning(report_redis_dequeue, err)
				select {
				case <-time.After(b.pollInterval):
				case <-ctx.Done():
					return
				}
				continue
			}

			// result is [key, value]
			var job Job
			err = json.Unmarshal([]byte(result[1]), &job)
			if err != nil {
				b.tel.ReportBroken(report_redis_dequeue, fmt.Errorf("decode job: %w", err))
				continue
			}
			select {
			case out <- job:
			case <-ctx.Done():
				// hand the job back so it is not lost
				_ = b.client.RPush(context.Background(), b.readyKey, result[1]).Err()
				return
			}
		}
	}()
	return out
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
