package badgerdb

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
)

const maxRetries = 5

func createDB(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(30 * time.Minute)

		go func() {
			for {
				<-ticker.C
				if err := db.Badger().RunValueLogGC(0.5); err != nil &&
					!errors.Is(err, badger.ErrNoRewrite) {
					log.WithError(err).Error("failed to run value log gc")
				}
			}
		}()
	}

	return db, nil
}

func parseConfig(config []interface{}) (string, badger.Logger, error) {
	if len(config) != 2 {
		return "", nil, errors.New("invalid config")
	}
	baseDir, ok := config[0].(string)
	if !ok {
		return "", nil, errors.New("invalid base directory")
	}
	var logger badger.Logger
	if config[1] != nil {
		logger, ok = config[1].(badger.Logger)
		if !ok {
			return "", nil, errors.New("invalid logger")
		}
	}
	return baseDir, logger, nil
}

// withRetry runs fn until it succeeds, fails with an error other than a
// transaction conflict or the max number of retries is reached.
func withRetry(fn func() error) error {
	var err error
	for range maxRetries {
		if err = fn(); err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		time.Sleep(100 * time.Millisecond)
	}
	return err
}
