package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

const badgerKeyPrefix = "checkpoint/"

// BadgerConfig configures the database opened by OpenBadgerStrategy.
type BadgerConfig struct {
	// Path is the database directory. Required unless InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	// Logger receives the database internal logs. They are discarded when nil.
	Logger *slog.Logger
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStrategy stores checkpoints in a BadgerDB key-value store.
type BadgerStrategy struct {
	db *badger.DB
	// owned is set when the strategy opened db and must close it.
	owned bool
}

// NewBadgerStrategy uses an already opened database. Closing it stays the caller's job.
func NewBadgerStrategy(db *badger.DB) *BadgerStrategy {
	return &BadgerStrategy{db: db}
}

// OpenBadgerStrategy opens the database described by cfg.
func OpenBadgerStrategy(cfg BadgerConfig) (*BadgerStrategy, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		err := os.MkdirAll(cfg.Path, 0o750)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to create database directory %s", cfg.Path)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open badger database")
	}

	return &BadgerStrategy{db: db, owned: true}, nil
}

// Close closes the database when the strategy opened it.
func (s *BadgerStrategy) Close() error {
	if !s.owned {
		return nil
	}

	return s.db.Close()
}

func (s *BadgerStrategy) key(id string) []byte {
	return []byte(badgerKeyPrefix + id)
}

func (s *BadgerStrategy) Save(ctx context.Context, id string, data Data) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "context cancelled")
	}
	if err := ValidateIdentifier(id); err != nil {
		return err
	}
	content, err := encode(id, data)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(id), content)
	})
	if err != nil {
		return errors.Wrapf(err, "unable to save checkpoint %s", id)
	}

	return nil
}

func (s *BadgerStrategy) Restore(ctx context.Context, id string) (Data, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, errors.Wrap(err, "context cancelled")
	}
	if err := ValidateIdentifier(id); err != nil {
		return nil, false, err
	}

	var content []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(id))
		if err != nil {
			return err
		}
		content, err = item.ValueCopy(nil)

		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "unable to restore checkpoint %s", id)
	}

	data, err := decode(id, content)
	if err != nil {
		return nil, false, err
	}

	return data, true, nil
}

func (s *BadgerStrategy) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "context cancelled")
	}
	if err := ValidateIdentifier(id); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(id))
	})
	if err != nil {
		return errors.Wrapf(err, "unable to delete checkpoint %s", id)
	}

	return nil
}

var (
	_ Strategy = (*BadgerStrategy)(nil)
	_ Deleter  = (*BadgerStrategy)(nil)
)
