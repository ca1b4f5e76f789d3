package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/ledger"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/types"
)

// Ledger is an in-memory, thread-safe hash chain. All data is lost when the
// process exits; use the badger backend for production.
type Ledger struct {
	mu      sync.RWMutex
	entries []*ledger.Entry
	closed  bool
}

var _ ledger.Ledger = (*Ledger)(nil)

// NewLedger creates an empty in-memory chain. The first append will chain
// from the GenesisHash sentinel.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append implements ledger.Ledger.
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

	prevHash := ledger.GenesisHash
	if len(l.entries) > 0 {
		prevHash = l.entries[len(l.entries)-1].EntryHash
	}

	entry := ledger.NewEntry(uint64(len(l.entries)), prevHash, encoded, signerIdentity, signature, hwSigned)
	l.entries = append(l.entries, entry)
	return entry, nil
}

// Get implements ledger.Ledger.
func (l *Ledger) Get(_ context.Context, sequence uint64) (*ledger.Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, fmt.Errorf("ledger is closed")
	}
	if sequence >= uint64(len(l.entries)) {
		return nil, fmt.Errorf("sequence %d out of range [0, %d)", sequence, len(l.entries))
	}
	return l.entries[sequence], nil
}

// Len implements ledger.Ledger.
func (l *Ledger) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return 0, fmt.Errorf("ledger is closed")
	}
	return len(l.entries), nil
}

// Verify implements ledger.Ledger.
func (l *Ledger) Verify(ctx context.Context) (*ledger.VerifyResult, error) {
	l.mu.RLock()
	entries := make([]*ledger.Entry, len(l.entries))
	copy(entries, l.entries)
	closed := l.closed
	l.mu.RUnlock()

	if closed {
		return nil, fmt.Errorf("ledger is closed")
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
	if len(l.entries) == 0 {
		return ledger.GenesisHash, nil
	}
	return l.entries[len(l.entries)-1].EntryHash, nil
}

// Close implements ledger.Ledger.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	return nil
}
