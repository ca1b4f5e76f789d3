package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/persistence"
)

// ActionStore is an in-memory implementation of IActionStore, intended for
// testing and single-process development. Data is deep-copied on the way in
// and out so callers cannot mutate stored payloads behind the store's back.
type ActionStore struct {
	mu sync.RWMutex

	// blockNumber -> canonical action encodings in leaf order
	blocks map[uint64][][]byte

	closed bool
}

var _ persistence.IActionStore = (*ActionStore)(nil)

// NewActionStore creates a new in-memory action store.
func NewActionStore() *ActionStore {
	return &ActionStore{
		blocks: make(map[uint64][][]byte),
	}
}

// SaveBlockActions implements IActionStore.
func (m *ActionStore) SaveBlockActions(blockNumber uint64, actions [][]byte) error {
	if actions == nil {
		return fmt.Errorf("cannot save nil actions")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("action store is closed")
	}

	m.blocks[blockNumber] = deepCopyActions(actions)
	return nil
}

// LoadBlockActions implements IActionStore.
func (m *ActionStore) LoadBlockActions(blockNumber uint64) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("action store is closed")
	}

	actions, exists := m.blocks[blockNumber]
	if !exists {
		return nil, nil // Not found is not an error
	}
	return deepCopyActions(actions), nil
}

// ListBlockNumbers implements IActionStore.
func (m *ActionStore) ListBlockNumbers() ([]uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("action store is closed")
	}

	numbers := make([]uint64, 0, len(m.blocks))
	for n := range m.blocks {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	return numbers, nil
}

// DeleteBlockActions implements IActionStore.
func (m *ActionStore) DeleteBlockActions(blockNumber uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("action store is closed")
	}

	delete(m.blocks, blockNumber)
	return nil
}

// Close implements IActionStore.
func (m *ActionStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck implements IActionStore.
func (m *ActionStore) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("action store is closed")
	}
	return nil
}

func deepCopyActions(actions [][]byte) [][]byte {
	out := make([][]byte, len(actions))
	for i, a := range actions {
		c := make([]byte, len(a))
		copy(c, a)
		out[i] = c
	}
	return out
}
