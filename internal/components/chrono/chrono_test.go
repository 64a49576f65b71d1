package chrono

import (
	"context"
	"errors"
	"mtgstats-backend/internal/components/telemetry"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStandardImpl(t *testing.T) {
	clock, err := NewStandardImpl("")
	require.NoError(t, err)
	require.Equal(t, DefaultLocation, clock.Location().String())
	require.Equal(t, DefaultLocation, clock.Now().Location().String())

	_, err = NewStandardImpl("Nowhere/Atlantis")
	require.Error(t, err)
}

func TestStartOfDay(t *testing.T) {
	paris, err := time.LoadLocation(DefaultLocation)
	require.NoError(t, err)

	// the night daylight saving time starts
	at := time.Date(2017, time.March, 26, 15, 4, 5, 0, paris)
	require.Equal(t, time.Date(2017, time.March, 26, 0, 0, 0, 0, paris), StartOfDay(at))
}

func TestSchedule(t *testing.T) {
	clock, err := NewStandardImpl("UTC")
	require.NoError(t, err)
	tel := telemetry.NewRecorder()

	cron := NewStandardCron(clock, tel)
	defer cron.Stop()

	ran := make(chan string, 4)
	err = cron.Schedule(context.Background(),
		Schedule{Name: "disabled", Spec: "", Run: func(context.Context) error {
			ran <- "disabled"
			return nil
		}},
		Schedule{Name: "failing", Spec: "@every 1s", Run: func(context.Context) error {
			ran <- "failing"
			return errors.New("broker closed")
		}},
	)
	require.NoError(t, err)

	select {
	case name := <-ran:
		require.Equal(t, "failing", name)
	case <-time.After(3 * time.Second):
		t.Fatal("schedule never ran")
	}
	require.Eventually(t, func() bool {
		return len(tel.Reports(telemetry.REPORT_BROKEN, report_cron_schedule)) > 0
	}, time.Second, 10*time.Millisecond)

	err = cron.Schedule(context.Background(), Schedule{Name: "bad", Spec: "every day", Run: func(context.Context) error { return nil }})
	require.Error(t, err)
}
