package badger

import (
	"context"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/persistence"
)

// Key prefixes for namespacing
const (
	keyPrefixActions     = "actions:"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// ActionStore is a production-ready action store backed by Badger.
// Provides durable, disk-based storage with SyncWrites enabled; the action
// payloads are the only copy of the evidence once blocks are evicted from
// memory.
type ActionStore struct {
	db       *badgerdb.DB
	logger   *zap.Logger
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

var _ persistence.IActionStore = (*ActionStore)(nil)

// NewActionStore opens a Badger-backed action store at dataPath.
// A background goroutine runs periodic value-log garbage collection.
func NewActionStore(dataPath string, logger *zap.Logger) (*ActionStore, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	s := &ActionStore{db: db, logger: logger}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.gcCancel = cancel
	s.gcWg.Add(1)
	go s.runGC(ctx)

	logger.Sugar().Infow("Badger action store initialized", "path", absPath)
	return s, nil
}

func (s *ActionStore) initSchema() error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get([]byte(keySchemaVersion))
		if err == badgerdb.ErrKeyNotFound {
			return txn.Set([]byte(keySchemaVersion), []byte(currentSchemaVersion))
		}
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		var existing string
		if err := item.Value(func(val []byte) error {
			existing = string(val)
			return nil
		}); err != nil {
			return fmt.Errorf("failed to read schema version value: %w", err)
		}
		if existing != currentSchemaVersion {
			return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
		}
		return nil
	})
}

// runGC runs periodic garbage collection in the background
func (s *ActionStore) runGC(ctx context.Context) {
	defer s.gcWg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Badger returns an error when there is nothing to collect
			if err := s.db.RunValueLogGC(0.5); err != nil && err != badgerdb.ErrNoRewrite {
				s.logger.Sugar().Debugw("Value log GC", "error", err)
			}
		}
	}
}

// SaveBlockActions implements IActionStore.
func (s *ActionStore) SaveBlockActions(blockNumber uint64, actions [][]byte) error {
	data, err := persistence.MarshalBlockActions(blockNumber, actions)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("action store is closed")
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(actionsKey(blockNumber), data)
	})
}

// LoadBlockActions implements IActionStore.
func (s *ActionStore) LoadBlockActions(blockNumber uint64) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("action store is closed")
	}

	var actions [][]byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(actionsKey(blockNumber))
		if err == badgerdb.ErrKeyNotFound {
			return nil // Not found is not an error
		}
		if err != nil {
			return fmt.Errorf("failed to read block %d actions: %w", blockNumber, err)
		}
		return item.Value(func(val []byte) error {
			_, loaded, err := persistence.UnmarshalBlockActions(val)
			if err != nil {
				return err
			}
			actions = loaded
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// ListBlockNumbers implements IActionStore.
func (s *ActionStore) ListBlockNumbers() ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("action store is closed")
	}

	numbers := make([]uint64, 0)
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefixActions)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if len(key) != len(keyPrefixActions)+8 {
				continue
			}
			numbers = append(numbers, binary.BigEndian.Uint64(key[len(keyPrefixActions):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

// DeleteBlockActions implements IActionStore.
func (s *ActionStore) DeleteBlockActions(blockNumber uint64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("action store is closed")
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(actionsKey(blockNumber))
	})
}

// Close implements IActionStore.
func (s *ActionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.gcCancel()
	s.gcWg.Wait()

	return s.db.Close()
}

// HealthCheck implements IActionStore.
func (s *ActionStore) HealthCheck() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("action store is closed")
	}
	return s.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get([]byte(keySchemaVersion))
		if err != nil && err != badgerdb.ErrKeyNotFound {
			return fmt.Errorf("health check read failed: %w", err)
		}
		return nil
	})
}

func actionsKey(blockNumber uint64) []byte {
	key := make([]byte, len(keyPrefixActions)+8)
	copy(key, keyPrefixActions)
	binary.BigEndian.PutUint64(key[len(keyPrefixActions):], blockNumber)
	return key
}
