package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/ledger"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/types"
)

// Key layout
const (
	keyPrefixEntry       = "chain:entry:"
	keyTip               = "chain:tip"
	keySchemaVersion     = "metadata:schema_version"
	currentSchemaVersion = "v1"
)

// Ledger is a durable hash chain backed by Badger. Writes are synced to
// disk on every append; an audit log that loses its tail on crash defeats
// its purpose.
type Ledger struct {
	db     *badgerdb.DB
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

var _ ledger.Ledger = (*Ledger)(nil)

// NewLedger opens (or creates) a Badger-backed chain at dataPath.
func NewLedger(dataPath string, logger *zap.Logger) (*Ledger, error) {
	absPath, err := filepath.Abs(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	opts := badgerdb.DefaultOptions(absPath)
	opts.Logger = &zapBadgerLogger{logger: logger}
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	opts.NumVersionsToKeep = 1

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database at %s: %w", absPath, err)
	}

	l := &Ledger{db: db, logger: logger}
	if err := l.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Badger ledger opened", "path", absPath)
	return l, nil
}

func (l *Ledger) initSchema() error {
	return l.db.Update(func(txn *badgerdb.Txn) error {
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

// Append implements ledger.Ledger. The tip pointer and the new entry are
// written in one transaction so the chain can never point past a missing
// entry.
func (l *Ledger) Append(_ context.Context, payload types.ActionRecord, signerIdentity string, signature []byte, hwSigned bool) (*ledger.Entry, error) {
	encoded, err := ledger.EncodePayload(payload)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, fmt.Errorf("ledger is closed")
	}

	var entry *ledger.Entry
	err = l.db.Update(func(txn *badgerdb.Txn) error {
		sequence := uint64(0)
		prevHash := ledger.GenesisHash

		tip, err := readTip(txn)
		if err != nil {
			return err
		}
		if tip != nil {
			sequence = tip.Sequence + 1
			prevHash = tip.EntryHash
		}

		entry = ledger.NewEntry(sequence, prevHash, encoded, signerIdentity, signature, hwSigned)
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to marshal entry: %w", err)
		}

		if err := txn.Set(entryKey(sequence), data); err != nil {
			return fmt.Errorf("failed to store entry %d: %w", sequence, err)
		}
		return txn.Set([]byte(keyTip), sequenceBytes(sequence))
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// Get implements ledger.Ledger.
func (l *Ledger) Get(_ context.Context, sequence uint64) (*ledger.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, fmt.Errorf("ledger is closed")
	}

	var entry *ledger.Entry
	err := l.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(entryKey(sequence))
		if err == badgerdb.ErrKeyNotFound {
			return fmt.Errorf("sequence %d not found", sequence)
		}
		if err != nil {
			return fmt.Errorf("failed to read entry %d: %w", sequence, err)
		}
		return item.Value(func(val []byte) error {
			entry = &ledger.Entry{}
			return json.Unmarshal(val, entry)
		})
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Len implements ledger.Ledger.
func (l *Ledger) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return 0, fmt.Errorf("ledger is closed")
	}

	count := 0
	err := l.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefixEntry)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Verify implements ledger.Ledger. Entries are streamed out of Badger in
// sequence order (keys are big-endian) and run through the shared chain walk.
func (l *Ledger) Verify(ctx context.Context) (*ledger.VerifyResult, error) {
	entries, err := l.loadAll()
	if err != nil {
		return nil, err
	}
	return ledger.VerifyChain(ctx, entries)
}

// Root implements ledger.Ledger.
func (l *Ledger) Root(_ context.Context) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return "", fmt.Errorf("ledger is closed")
	}

	root := ledger.GenesisHash
	err := l.db.View(func(txn *badgerdb.Txn) error {
		tip, err := readTip(txn)
		if err != nil {
			return err
		}
		if tip != nil {
			root = tip.EntryHash
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return root, nil
}

// Close implements ledger.Ledger.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.db.Close()
}

func (l *Ledger) loadAll() ([]*ledger.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, fmt.Errorf("ledger is closed")
	}

	var entries []*ledger.Entry
	err := l.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefixEntry)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				entry := &ledger.Entry{}
				if err := json.Unmarshal(val, entry); err != nil {
					return fmt.Errorf("failed to unmarshal entry: %w", err)
				}
				entries = append(entries, entry)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// readTip returns the tip entry, or nil for an empty chain.
func readTip(txn *badgerdb.Txn) (*ledger.Entry, error) {
	item, err := txn.Get([]byte(keyTip))
	if err == badgerdb.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tip: %w", err)
	}

	var sequence uint64
	if err := item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("malformed tip value")
		}
		sequence = binary.BigEndian.Uint64(val)
		return nil
	}); err != nil {
		return nil, err
	}

	entryItem, err := txn.Get(entryKey(sequence))
	if err != nil {
		return nil, fmt.Errorf("failed to read tip entry %d: %w", sequence, err)
	}

	entry := &ledger.Entry{}
	if err := entryItem.Value(func(val []byte) error {
		return json.Unmarshal(val, entry)
	}); err != nil {
		return nil, err
	}
	return entry, nil
}

func entryKey(sequence uint64) []byte {
	key := make([]byte, len(keyPrefixEntry)+8)
	copy(key, keyPrefixEntry)
	binary.BigEndian.PutUint64(key[len(keyPrefixEntry):], sequence)
	return key
}

func sequenceBytes(sequence uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, sequence)
	return buf
}
