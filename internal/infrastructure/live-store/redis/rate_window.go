package redislivestore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/arkade-os/relayd/internal/core/ports"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const rateWindowKey = "rateWindowStore:admissions"

// rateWindowStore keeps the admissions in a sorted set scored by their
// timestamp in microseconds.
type rateWindowStore struct {
	rdb          *redis.Client
	numOfRetries int
	retryDelay   time.Duration
}

func NewRateWindowStore(rdb *redis.Client, numOfRetries int) ports.RateWindowStore {
	return &rateWindowStore{
		rdb:          rdb,
		numOfRetries: numOfRetries,
		retryDelay:   10 * time.Millisecond,
	}
}

func (s *rateWindowStore) Admit(
	ctx context.Context, now time.Time, window time.Duration, limit uint64,
) (bool, error) {
	cutoff := strconv.FormatInt(now.Add(-window).UnixMicro(), 10)
	member := fmt.Sprintf("%d:%s", now.UnixMicro(), uuid.NewString())

	var err error
	for range s.numOfRetries {
		admitted := false
		if err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			count, err := tx.ZCount(ctx, rateWindowKey, "("+cutoff, "+inf").Result()
			if err != nil {
				return err
			}
			if uint64(count) >= limit {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.ZRemRangeByScore(ctx, rateWindowKey, "-inf", cutoff)
				pipe.ZAdd(ctx, rateWindowKey, redis.Z{
					Score:  float64(now.UnixMicro()),
					Member: member,
				})
				return nil
			})
			if err == nil {
				admitted = true
			}
			return err
		}, rateWindowKey); err == nil {
			return admitted, nil
		}
		time.Sleep(s.retryDelay)
	}
	return false, fmt.Errorf("failed to update rate window after max number of retries: %v", err)
}

func (s *rateWindowStore) Count(
	ctx context.Context, now time.Time, window time.Duration,
) (uint64, error) {
	cutoff := strconv.FormatInt(now.Add(-window).UnixMicro(), 10)
	count, err := s.rdb.ZCount(ctx, rateWindowKey, "("+cutoff, "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count rate window admissions: %v", err)
	}
	return uint64(count), nil
}

func (s *rateWindowStore) Release(ctx context.Context, at time.Time) error {
	score := strconv.FormatInt(at.UnixMicro(), 10)

	var err error
	for range s.numOfRetries {
		if err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			members, err := tx.ZRangeByScore(ctx, rateWindowKey, &redis.ZRangeBy{
				Min:   score,
				Max:   score,
				Count: 1,
			}).Result()
			if err != nil {
				return err
			}
			if len(members) <= 0 {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.ZRem(ctx, rateWindowKey, members[0])
				return nil
			})
			return err
		}, rateWindowKey); err == nil {
			return nil
		}
		time.Sleep(s.retryDelay)
	}
	return fmt.Errorf("failed to release rate window admission after max number of retries: %v", err)
}

func (s *rateWindowStore) Reset(ctx context.Context) error {
	if err := s.rdb.Del(ctx, rateWindowKey).Err(); err != nil {
		return fmt.Errorf("failed to reset rate window: %v", err)
	}
	return nil
}
