package inmemorylivestore

import (
	"context"
	"sync"

	"github.com/arkade-os/relayd/internal/core/ports"
)

type keyLock struct {
	ch   chan struct{}
	refs int
}

type lockStore struct {
	lock  sync.Mutex
	locks map[string]*keyLock
}

func NewLockStore() ports.LockStore {
	return &lockStore{
		locks: make(map[string]*keyLock),
	}
}

func (s *lockStore) Lock(ctx context.Context, key string) (func(), error) {
	s.lock.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		s.locks[key] = l
	}
	l.refs++
	s.lock.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		s.release(key, l)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			s.release(key, l)
		})
	}, nil
}

func (s *lockStore) release(key string, l *keyLock) {
	s.lock.Lock()
	defer s.lock.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(s.locks, key)
	}
}
