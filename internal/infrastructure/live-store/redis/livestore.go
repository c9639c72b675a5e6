package redislivestore

import (
	"github.com/arkade-os/relayd/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

type redisLiveStore struct {
	rateWindowStore ports.RateWindowStore
	lockStore       ports.LockStore
}

func NewLiveStore(rdb *redis.Client, numOfRetries int) ports.LiveStore {
	return &redisLiveStore{
		rateWindowStore: NewRateWindowStore(rdb, numOfRetries),
		lockStore:       NewLockStore(rdb),
	}
}

func (s *redisLiveStore) RateWindow() ports.RateWindowStore {
	return s.rateWindowStore
}

func (s *redisLiveStore) Locks() ports.LockStore {
	return s.lockStore
}
