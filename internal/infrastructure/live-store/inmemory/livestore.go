package inmemorylivestore

import "github.com/arkade-os/relayd/internal/core/ports"

type inMemoryLiveStore struct {
	rateWindowStore ports.RateWindowStore
	lockStore       ports.LockStore
}

func NewLiveStore() ports.LiveStore {
	return &inMemoryLiveStore{
		rateWindowStore: NewRateWindowStore(),
		lockStore:       NewLockStore(),
	}
}

func (s *inMemoryLiveStore) RateWindow() ports.RateWindowStore {
	return s.rateWindowStore
}

func (s *inMemoryLiveStore) Locks() ports.LockStore {
	return s.lockStore
}
