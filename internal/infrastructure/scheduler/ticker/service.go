package tickerscheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/arkade-os/relayd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type Option func(*service)

func WithTickerInterval(interval time.Duration) Option {
	return func(s *service) {
		s.tickerInterval = interval
	}
}

// service is a scheduler driven by the given clock rather than the wall
// clock. Due tasks are polled at every tick.
type service struct {
	clock          ports.Clock
	lock           sync.Locker
	tasks          map[int64][]func()
	stopCh         chan struct{}
	tickerInterval time.Duration
}

func NewScheduler(clock ports.Clock, opts ...Option) (ports.SchedulerService, error) {
	if clock == nil {
		return nil, fmt.Errorf("missing clock")
	}

	svc := &service{
		clock,
		&sync.Mutex{},
		make(map[int64][]func()),
		make(chan struct{}),
		time.Second,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc, nil
}

func (s *service) Start() {
	go func() {
		ticker := time.NewTicker(s.tickerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				tasks := s.popTasks()
				if len(tasks) > 0 {
					log.Debugf("running %d scheduled tasks", len(tasks))
				}
				for _, task := range tasks {
					go task()
				}
			}
		}
	}()
}

func (s *service) Stop() {
	close(s.stopCh)
}

func (s *service) AddNow(lifetime int64) int64 {
	return s.clock.Now().Unix() + lifetime
}

func (s *service) AfterNow(expiry int64) bool {
	return expiry > s.clock.Now().Unix()
}

func (s *service) ScheduleTaskOnce(at int64, task func()) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.tasks[at]; !ok {
		s.tasks[at] = make([]func(), 0)
	}

	s.tasks[at] = append(s.tasks[at], task)

	return nil
}

func (s *service) popTasks() []func() {
	s.lock.Lock()
	defer s.lock.Unlock()

	now := s.clock.Now().Unix()
	tasks := make([]func(), 0)

	for at, scheduled := range s.tasks {
		if at > now {
			continue
		}

		tasks = append(tasks, scheduled...)
		delete(s.tasks, at)
	}

	return tasks
}
