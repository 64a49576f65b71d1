package jobs

import (
	"context"
	"fmt"
	"mtgstats-backend/internal/components/telemetry"
)

// BrokerConfig selects the broker, jobs stay in the process unless a redis
// address is given.
type BrokerConfig struct {
	// Capacity bounds the in-process queue.
	Capacity int          `json:"capacity"`
	Redis    RedisOptions `json:"redis"`
}

func (c BrokerConfig) NewBroker(ctx context.Context, tel telemetry.API) (Broker, error) {
	if c.Redis.Addr == "" {
		return NewMemoryBroker(c.Capacity), nil
	}
	broker := NewRedisBroker(c.Redis, tel)
	err := broker.Ping(ctx)
	if err != nil {
		broker.Close()
		return nil, fmt.Errorf("connect to redis broker %s: %w", c.Redis.Addr, err)
	}
	return broker, nil
}
