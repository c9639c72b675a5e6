package badgerdb

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/arkade-os/relayd/internal/infrastructure/db/dbutil"
	"github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const (
	eventStoreDir    = "events"
	eventSequenceKey = "event_sequence"
)

type eventRecord struct {
	Seq         uint64
	Topic       string
	AggregateId string `badgerhold:"index"`
	Payload     []byte
}

type subscriber struct {
	topic   string
	handler func(events []domain.Event)
}

type eventRepository struct {
	store    *badgerhold.Store
	sequence *badger.Sequence

	subscribers    map[string][]subscriber // topic -> subscribers
	subscriberLock *sync.Mutex
}

func NewEventRepository(config ...interface{}) (domain.EventRepository, error) {
	baseDir, logger, err := parseConfig(config)
	if err != nil {
		return nil, err
	}

	var dir string
	if len(baseDir) > 0 {
		dir = filepath.Join(baseDir, eventStoreDir)
	}
	store, err := createDB(dir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open event store: %s", err)
	}

	sequence, err := store.Badger().GetSequence([]byte(eventSequenceKey), 100)
	if err != nil {
		// nolint:all
		store.Close()
		return nil, fmt.Errorf("failed to open event sequence: %s", err)
	}

	return &eventRepository{
		store:          store,
		sequence:       sequence,
		subscribers:    make(map[string][]subscriber),
		subscriberLock: &sync.Mutex{},
	}, nil
}

func (r *eventRepository) Save(
	ctx context.Context, topic, id string, events []domain.Event,
) error {
	records := make([]eventRecord, 0, len(events))
	for _, event := range events {
		payload, err := dbutil.SerializeEvent(event)
		if err != nil {
			return fmt.Errorf("failed to serialize event: %w", err)
		}
		seq, err := r.sequence.Next()
		if err != nil {
			return fmt.Errorf("failed to get next event sequence: %w", err)
		}
		records = append(records, eventRecord{
			Seq:         seq,
			Topic:       topic,
			AggregateId: id,
			Payload:     payload,
		})
	}

	if err := withRetry(func() error {
		tx := r.store.Badger().NewTransaction(true)
		defer tx.Discard()

		for _, record := range records {
			if err := r.store.TxInsert(tx, record.Seq, &record); err != nil {
				return err
			}
		}
		return tx.Commit()
	}); err != nil {
		return fmt.Errorf("failed to save events: %w", err)
	}

	if err := r.dispatch(topic, id); err != nil {
		log.WithError(err).Error("failed to dispatch saved events")
	}
	return nil
}

func (r *eventRepository) RegisterEventsHandler(
	topic string, handler func(events []domain.Event),
) {
	r.subscriberLock.Lock()
	defer r.subscriberLock.Unlock()

	r.subscribers[topic] = append(r.subscribers[topic], subscriber{
		topic:   topic,
		handler: handler,
	})
}

func (r *eventRepository) ClearRegisteredHandlers(topics ...string) {
	r.subscriberLock.Lock()
	defer r.subscriberLock.Unlock()

	if len(topics) == 0 {
		r.subscribers = make(map[string][]subscriber)
		return
	}

	for _, topic := range topics {
		delete(r.subscribers, topic)
	}
}

func (r *eventRepository) Close() {
	// nolint:all
	r.sequence.Release()
	// nolint:all
	r.store.Close()
}

func (r *eventRepository) dispatch(topic, id string) error {
	r.subscriberLock.Lock()
	defer r.subscriberLock.Unlock()

	subscribers := r.subscribers[topic]
	if len(subscribers) == 0 {
		return nil
	}

	events, err := r.getAllEvents(topic, id)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	for _, subscriber := range subscribers {
		go subscriber.handler(events)
	}
	return nil
}

func (r *eventRepository) getAllEvents(topic, id string) ([]domain.Event, error) {
	query := badgerhold.Where("AggregateId").Eq(id).Index("AggregateId").
		And("Topic").Eq(topic).SortBy("Seq")

	records := make([]eventRecord, 0)
	if err := r.store.Find(&records, query); err != nil {
		return nil, fmt.Errorf(
			"failed to query events for topic %s with id %s: %w", topic, id, err,
		)
	}

	events := make([]domain.Event, 0, len(records))
	for _, record := range records {
		event, err := dbutil.DeserializeEvent(record.Payload)
		if err != nil {
			log.WithError(err).Warnf("failed to deserialize event: %s", string(record.Payload))
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
