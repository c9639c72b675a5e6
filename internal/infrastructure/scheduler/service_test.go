package scheduler_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/arkade-os/relayd/internal/core/ports"
	"github.com/arkade-os/relayd/internal/infrastructure/clock"
	timescheduler "github.com/arkade-os/relayd/internal/infrastructure/scheduler/gocron"
	tickerscheduler "github.com/arkade-os/relayd/internal/infrastructure/scheduler/ticker"
	"github.com/stretchr/testify/require"
)

type service struct {
	name      string
	scheduler ports.SchedulerService
}

func TestScheduleTask(t *testing.T) {
	t.Parallel()

	svcs := servicesToTest(t)

	for _, svc := range svcs {
		t.Run(svc.name, func(t *testing.T) {
			var called atomic.Bool
			handlerFunc := func() {
				called.Store(true)
			}

			err := svc.scheduler.ScheduleTaskOnce(svc.scheduler.AddNow(2), handlerFunc)
			require.NoError(t, err)
			require.False(t, called.Load())

			time.Sleep(4 * time.Second)

			require.True(t, called.Load())
		})
	}
}

func TestScheduleTaskInThePast(t *testing.T) {
	t.Parallel()

	svcs := servicesToTest(t)

	for _, svc := range svcs {
		t.Run(svc.name, func(t *testing.T) {
			var called atomic.Bool

			at := svc.scheduler.AddNow(-10)
			require.False(t, svc.scheduler.AfterNow(at))

			err := svc.scheduler.ScheduleTaskOnce(at, func() { called.Store(true) })
			require.NoError(t, err)

			require.Eventually(t, called.Load, 3*time.Second, 100*time.Millisecond)
		})
	}
}

func servicesToTest(t *testing.T) []service {
	tickerService, err := tickerscheduler.NewScheduler(
		clock.NewSystemClock(),
		tickerscheduler.WithTickerInterval(200*time.Millisecond),
	)
	require.NoError(t, err)

	svcs := []service{
		{name: "gocron", scheduler: timescheduler.NewScheduler()},
		{name: "ticker", scheduler: tickerService},
	}

	for _, svc := range svcs {
		svc.scheduler.Start()
		t.Cleanup(func() { svc.scheduler.Stop() })
	}

	return svcs
}
