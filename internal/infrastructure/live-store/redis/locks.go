package redislivestore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arkade-os/relayd/internal/core/ports"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	lockKeyPrefix = "lockStore:"
	lockTTL       = 30 * time.Second
)

// A held key expires after ttl unless it's renewed. The holder extends the
// lease every ttl/3 until it unlocks, so a crashed process frees the key
// within ttl.
type lockStore struct {
	rdb        *redis.Client
	ttl        time.Duration
	retryDelay time.Duration
}

func NewLockStore(rdb *redis.Client) ports.LockStore {
	return &lockStore{
		rdb:        rdb,
		ttl:        lockTTL,
		retryDelay: 20 * time.Millisecond,
	}
}

func (s *lockStore) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := lockKeyPrefix + key
	token := uuid.NewString()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := s.rdb.SetNX(ctx, lockKey, token, s.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}

	done := make(chan struct{})
	go s.keepAlive(lockKey, token, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			if err := s.unlock(lockKey, token); err != nil {
				log.WithError(err).Warnf("failed to release lock %s", key)
			}
		})
	}, nil
}

func (s *lockStore) keepAlive(lockKey, token string, done <-chan struct{}) {
	ticker := time.NewTicker(s.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			renewed, err := s.renew(lockKey, token)
			if err != nil {
				log.WithError(err).Warnf("failed to renew lock %s", lockKey)
				continue
			}
			if !renewed {
				log.Warnf("lock %s expired before renewal", lockKey)
				return
			}
		}
	}
}

// renew extends the ttl of the key only if it still holds the given token.
func (s *lockStore) renew(lockKey, token string) (bool, error) {
	ctx := context.Background()
	renewed := false
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, lockKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return err
		}
		if current != token {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.PExpire(ctx, lockKey, s.ttl)
			return nil
		})
		if err == nil {
			renewed = true
		}
		return err
	}, lockKey)
	return renewed, err
}

// unlock deletes the key only if it still holds the given token.
func (s *lockStore) unlock(lockKey, token string) error {
	ctx := context.Background()
	return s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, lockKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}
			return err
		}
		if current != token {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, lockKey)
			return nil
		})
		return err
	}, lockKey)
}
