package scheduler

import (
	"time"

	"github.com/arkade-os/relayd/internal/core/ports"
	"github.com/go-co-op/gocron"
)

type service struct {
	scheduler *gocron.Scheduler
}

func NewScheduler() ports.SchedulerService {
	svc := gocron.NewScheduler(time.UTC)
	return &service{svc}
}

func (s *service) Start() {
	s.scheduler.StartAsync()
}

func (s *service) Stop() {
	s.scheduler.Stop()
}

func (s *service) AddNow(lifetime int64) int64 {
	return time.Now().Add(time.Duration(lifetime) * time.Second).Unix()
}

func (s *service) AfterNow(expiry int64) bool {
	return expiry > time.Now().Unix()
}

func (s *service) ScheduleTaskOnce(at int64, task func()) error {
	delay := time.Until(time.Unix(at, 0))
	if delay <= 0 {
		go task()
		return nil
	}

	_, err := s.scheduler.Every(delay).WaitForSchedule().LimitRunsTo(1).Do(task)
	return err
}
