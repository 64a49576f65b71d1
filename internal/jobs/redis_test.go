package jobs

import (
	"context"
	"fmt"
	"io"
	"log"
	"mtgstats-backend/internal/components/telemetry"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a throwaway redis, it needs docker so it only runs when
// MTGSTATS_TEST_REDIS is set.
func setupRedis(t testing.TB) string {
	if os.Getenv("MTGSTATS_TEST_REDIS") == "" {
		t.Skip("MTGSTATS_TEST_REDIS is not set")
	}

	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections"),
			},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		err := container.Terminate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func TestRedisBroker(t *testing.T) {
	addr := setupRedis(t)

	tel := telemetry.NewRecorder()
	broker, err := BrokerConfig{Redis: RedisOptions{Addr: addr, Prefix: "test"}}.NewBroker(context.Background(), tel)
	require.NoError(t, err)
	defer broker.Close()

	now, err := NewJob("now", pagePayload{Page: 1})
	require.NoError(t, err)
	later, err := NewJob("later", pagePayload{Page: 2})
	require.NoError(t, err)

	require.NoError(t, broker.Enqueue(context.Background(), later, 200*time.Millisecond))
	require.NoError(t, broker.Enqueue(context.Background(), now, 0))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	jobs := broker.Dequeue(ctx)

	first := <-jobs
	require.Equal(t, now.ID, first.ID)
	require.JSONEq(t, `{"page":1}`, string(first.Payload))

	second := <-jobs
	require.Equal(t, later.ID, second.ID)

	require.Empty(t, tel.Reports(telemetry.REPORT_BROKEN, ""))
}

func TestRedisPool(t *testing.T) {
	addr := setupRedis(t)

	tel := telemetry.NewRecorder()
	broker := NewRedisBroker(RedisOptions{Addr: addr, Prefix: "pool"}, tel)
	defer broker.Close()

	registry := NewRegistry()
	done := make(chan int, 1)
	Register(registry, "page", fastPolicy, func(ctx context.Context, payload pagePayload) error {
		done <- payload.Page
		return nil
	})
	pool := NewPool(broker, registry, tel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pool.Run(ctx)

	require.NoError(t, pool.Dispatch(ctx, "page", pagePayload{Page: 7}))
	select {
	case page := <-done:
		require.Equal(t, 7, page)
	case <-time.After(10 * time.Second):
		t.Fatal("job never ran")
	}

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, pool.Wait(waitCtx))
}
