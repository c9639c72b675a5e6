package inmemorylivestore

import (
	"context"
	"sync"
	"time"

	"github.com/arkade-os/relayd/internal/core/ports"
)

type rateWindowStore struct {
	lock       sync.Mutex
	admissions []time.Time
}

func NewRateWindowStore() ports.RateWindowStore {
	return &rateWindowStore{
		admissions: make([]time.Time, 0),
	}
}

func (s *rateWindowStore) Admit(
	_ context.Context, now time.Time, window time.Duration, limit uint64,
) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.prune(now.Add(-window))

	if uint64(len(s.admissions)) >= limit {
		return false, nil
	}
	s.admissions = append(s.admissions, now)
	return true, nil
}

func (s *rateWindowStore) Count(
	_ context.Context, now time.Time, window time.Duration,
) (uint64, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	cutoff := now.Add(-window)
	count := uint64(0)
	for _, t := range s.admissions {
		if t.After(cutoff) {
			count++
		}
	}
	return count, nil
}

func (s *rateWindowStore) Release(_ context.Context, at time.Time) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	for i, t := range s.admissions {
		if t.Equal(at) {
			s.admissions = append(s.admissions[:i], s.admissions[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *rateWindowStore) Reset(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.admissions = make([]time.Time, 0)
	return nil
}

// prune drops the admissions that are not strictly after the cutoff.
// Must be called with the lock held.
func (s *rateWindowStore) prune(cutoff time.Time) {
	kept := s.admissions[:0]
	for _, t := range s.admissions {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	s.admissions = kept
}
