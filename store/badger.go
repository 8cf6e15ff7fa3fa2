package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"homematch/apperrors"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// BadgerConfig configures the embedded backend.
type BadgerConfig struct {
	// Path is the directory for database files. Ignored when InMemory is set.
	Path string
	// InMemory keeps everything in RAM. Used by tests and throwaway runs.
	InMemory   bool
	SyncWrites bool
}

// BadgerTable implements Table on an embedded BadgerDB. Primary items live
// under "p\x00<PK>\x00<SK>"; index entries under
// "<index>\x00<indexPK>\x00<indexSK>\x00<PK>\x00<SK>" and point at the
// primary key. Expiring items use Badger's native TTL.
type BadgerTable struct {
	db     *badger.DB
	logger *zap.Logger
}

const (
	keySep          = "\x00"
	primaryKeySpace = "p"
	maxTxnAttempts  = 3
)

// badgerLogger adapts zap to BadgerDB's logger interface.
type badgerLogger struct {
	sugar *zap.SugaredLogger
}

func (l *badgerLogger) Errorf(format string, args ...interface{})   { l.sugar.Errorf(format, args...) }
func (l *badgerLogger) Warningf(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }
func (l *badgerLogger) Infof(format string, args ...interface{})    { l.sugar.Debugf(format, args...) }
func (l *badgerLogger) Debugf(format string, args ...interface{})   { l.sugar.Debugf(format, args...) }

// OpenBadger opens (or creates) a Badger-backed table.
func OpenBadger(cfg BadgerConfig, logger *zap.Logger) (*BadgerTable, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{sugar: logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	logger.Info("✅ Badger store opened", zap.String("path", cfg.Path), zap.Bool("in_memory", cfg.InMemory))
	return &BadgerTable{db: db, logger: logger}, nil
}

func primaryKey(pk, sk string) []byte {
	return []byte(primaryKeySpace + keySep + pk + keySep + sk)
}

func indexKey(index Index, indexPK, indexSK, pk, sk string) []byte {
	return []byte(string(index) + keySep + indexPK + keySep + indexSK + keySep + pk + keySep + sk)
}

func indexKeys(item Item) [][]byte {
	var keys [][]byte
	if item.GSI1PK != "" {
		keys = append(keys, indexKey(IndexGSI1, item.GSI1PK, item.GSI1SK, item.PK, item.SK))
	}
	if item.GSI2PK != "" {
		keys = append(keys, indexKey(IndexGSI2, item.GSI2PK, item.GSI2SK, item.PK, item.SK))
	}
	return keys
}

func newEntry(key, value []byte, expiresAt time.Time) *badger.Entry {
	e := badger.NewEntry(key, value)
	if !expiresAt.IsZero() {
		e = e.WithTTL(time.Until(expiresAt))
	}
	return e
}

func readItem(txn *badger.Txn, key []byte) (Item, error) {
	entry, err := txn.Get(key)
	if err != nil {
		return Item{}, err
	}
	raw, err := entry.ValueCopy(nil)
	if err != nil {
		return Item{}, err
	}
	var item Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return Item{}, fmt.Errorf("failed to decode item %q: %w", key, err)
	}
	return item, nil
}

func (t *BadgerTable) writeItem(txn *badger.Txn, item Item, ifAbsent bool) error {
	if item.PK == "" || item.SK == "" {
		return apperrors.NewValidation("item key cannot be empty")
	}
	key := primaryKey(item.PK, item.SK)

	existing, err := readItem(txn, key)
	switch {
	case err == nil:
		if ifAbsent {
			return apperrors.NewConflict("item %s/%s already exists", item.PK, item.SK)
		}
		for _, k := range indexKeys(existing) {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
	case errors.Is(err, badger.ErrKeyNotFound):
	default:
		return err
	}

	value, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}
	if err := txn.SetEntry(newEntry(key, value, item.ExpiresAt)); err != nil {
		return err
	}
	for _, k := range indexKeys(item) {
		if err := txn.SetEntry(newEntry(k, key, item.ExpiresAt)); err != nil {
			return err
		}
	}
	return nil
}

// update runs fn in a read-write transaction, retrying on optimistic
// transaction conflicts.
func (t *BadgerTable) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 1; attempt <= maxTxnAttempts; attempt++ {
		err = t.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		t.logger.Debug("badger transaction conflict, retrying", zap.Int("attempt", attempt))
	}
	return err
}

func (t *BadgerTable) Put(ctx context.Context, item Item) error {
	return t.TransactPut(ctx, []Write{{Item: item}})
}

func (t *BadgerTable) PutIfAbsent(ctx context.Context, item Item) error {
	return t.TransactPut(ctx, []Write{{Item: item, IfAbsent: true}})
}

func (t *BadgerTable) TransactPut(ctx context.Context, writes []Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.update(func(txn *badger.Txn) error {
		for _, w := range writes {
			if err := t.writeItem(txn, w.Item, w.IfAbsent); err != nil {
				return err
			}
		}
		return nil
	})
}

func (t *BadgerTable) Get(ctx context.Context, pk, sk string) (Item, error) {
	if err := ctx.Err(); err != nil {
		return Item{}, err
	}
	var item Item
	err := t.db.View(func(txn *badger.Txn) error {
		var err error
		item, err = readItem(txn, primaryKey(pk, sk))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Item{}, apperrors.NewNotFound("item %s/%s not found", pk, sk)
	}
	return item, err
}

func (t *BadgerTable) Query(ctx context.Context, q Query) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var prefix []byte
	switch q.Index {
	case IndexPrimary:
		prefix = []byte(primaryKeySpace + keySep + q.PK + keySep + q.SKPrefix)
	case IndexGSI1, IndexGSI2:
		prefix = []byte(string(q.Index) + keySep + q.PK + keySep + q.SKPrefix)
	default:
		return nil, fmt.Errorf("unknown index %q", q.Index)
	}

	var items []Item
	err := t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = q.Descending
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := prefix
		if q.Descending {
			seek = append(bytes.Clone(prefix), 0xFF)
		}
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var item Item
			if q.Index == IndexPrimary {
				raw, err := it.Item().ValueCopy(nil)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(raw, &item); err != nil {
					return fmt.Errorf("failed to decode item %q: %w", it.Item().Key(), err)
				}
			} else {
				target, err := it.Item().ValueCopy(nil)
				if err != nil {
					return err
				}
				item, err = readItem(txn, target)
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				if err != nil {
					return err
				}
			}
			items = append(items, item)
			if q.Limit > 0 && len(items) >= q.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.logger.Debug("badger query",
		zap.String("index", string(q.Index)),
		zap.String("pk", q.PK),
		zap.String("sk_prefix", q.SKPrefix),
		zap.Int("items", len(items)))
	return items, nil
}

func (t *BadgerTable) Close() error {
	return t.db.Close()
}
