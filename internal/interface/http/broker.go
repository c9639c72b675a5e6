package httpservice

import (
	"maps"
	"strings"
	"sync"
)

const listenerBufferSize = 100

type listener[T any] struct {
	id     string
	topics map[string]struct{}
	ch     chan T
	lock   *sync.RWMutex
}

func newListener[T any](id string, topics []string) *listener[T] {
	topicsMap := make(map[string]struct{})
	for _, topic := range topics {
		if formatted := formatTopic(topic); formatted != "" {
			topicsMap[formatted] = struct{}{}
		}
	}
	return &listener[T]{
		id:     id,
		topics: topicsMap,
		ch:     make(chan T, listenerBufferSize),
		lock:   &sync.RWMutex{},
	}
}

// includesAny tells whether the listener is subscribed to any of the given
// topics. A listener without topics is subscribed to all of them.
func (l *listener[T]) includesAny(topics []string) bool {
	l.lock.RLock()
	defer l.lock.RUnlock()
	if len(l.topics) == 0 {
		return true
	}

	for _, topic := range topics {
		if _, ok := l.topics[formatTopic(topic)]; ok {
			return true
		}
	}
	return false
}

// broker keeps track of the listeners of a stream. It is safe for concurrent
// use.
type broker[T any] struct {
	lock      *sync.RWMutex
	listeners map[string]*listener[T]
}

func newBroker[T any]() *broker[T] {
	return &broker[T]{
		lock:      &sync.RWMutex{},
		listeners: make(map[string]*listener[T]),
	}
}

func (h *broker[T]) pushListener(l *listener[T]) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.listeners[l.id] = l
}

func (h *broker[T]) removeListener(id string) {
	h.lock.Lock()
	defer h.lock.Unlock()

	delete(h.listeners, id)
}

// publish pushes the message to every listener subscribed to topic and
// returns the ids of the listeners that dropped it because their buffer is
// full.
func (h *broker[T]) publish(topic string, msg T) []string {
	dropped := make([]string, 0)
	for _, l := range h.getListenersCopy() {
		if !l.includesAny([]string{topic}) {
			continue
		}
		select {
		case l.ch <- msg:
		default:
			dropped = append(dropped, l.id)
		}
	}
	return dropped
}

func (h *broker[T]) getListenersCopy() map[string]*listener[T] {
	h.lock.RLock()
	defer h.lock.RUnlock()

	listenersCopy := make(map[string]*listener[T], len(h.listeners))
	maps.Copy(listenersCopy, h.listeners)
	return listenersCopy
}

func (h *broker[T]) hasListeners() bool {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.listeners) > 0
}

func formatTopic(topic string) string {
	return strings.Trim(strings.ToLower(topic), " ")
}
