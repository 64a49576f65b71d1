package chrono

import (
	"context"
	"fmt"
	"mtgstats-backend/internal/components/telemetry"

	"github.com/robfig/cron/v3"
)

const report_cron_schedule = "cron.schedule"

// CronAPI runs callbacks on cron specs.
type CronAPI interface {
	Cron(spec string, callback func()) error
}

// Schedule is a named periodic task, an empty Spec disables it.
type Schedule struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// StandardCron implements CronAPI with `github.com/robfig/cron/v3`, specs are
// evaluated in the location of the clock it was created with.
type StandardCron struct {
	cron *cron.Cron
	tel  telemetry.API
}

// NewStandardCron starts the scheduler immediately.
func NewStandardCron(time API, tel telemetry.API) StandardCron {
	tel = telemetry.NewScopedAPI("chrono", tel)
	cronner := cron.New(
		cron.WithLogger(cronLogger{tel: tel}),
		cron.WithLocation(time.Location()),
	)
	cronner.Start()

	return StandardCron{
		cron: cronner,
		tel:  tel,
	}
}

func (s StandardCron) Cron(spec string, callback func()) error {
	_, err := s.cron.AddFunc(spec, callback)
	return err
}

// Schedule registers every enabled schedule, a failed run is reported and
// the schedule keeps running.
func (s StandardCron) Schedule(ctx context.Context, schedules ...Schedule) error {
	for _, schedule := range schedules {
		if schedule.Spec == "" {
			continue
		}
		err := s.Cron(schedule.Spec, func() {
			err := schedule.Run(ctx)
			if err != nil {
				s.tel.ReportBroken(report_cron_schedule, err, schedule.Name)
			}
		})
		if err != nil {
			return fmt.Errorf("schedule %s (%q): %w", schedule.Name, schedule.Spec, err)
		}
		s.tel.ReportDebug("scheduled", schedule.Name, schedule.Spec)
	}
	return nil
}

// Stop stops the scheduler, running callbacks are not interrupted.
func (s StandardCron) Stop() {
	s.cron.Stop()
}

// cronLogger forwards the scheduler logs to telemetry.
type cronLogger struct {
	tel telemetry.API
}

func (l cronLogger) params(keysAndValues []any) []any {
	out := make([]any, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out = append(out, fmt.Sprintf("%v: %v", keysAndValues[i], keysAndValues[i+1]))
	}
	return out
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.tel.ReportDebug("cron: "+msg, l.params(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	params := append([]any{fmt.Errorf("%s: %w", msg, err)}, l.params(keysAndValues)...)
	l.tel.ReportBroken("cron", params...)
}
