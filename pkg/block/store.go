package block

import (
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/merkle"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/persistence"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/types"
)

// ConsistencyError reports that a block's recorded merkle root no longer
// matches a tree rebuilt from its currently stored actions: the chained
// root is immutable, so the action store was mutated out of band.
type ConsistencyError struct {
	BlockNumber    uint64
	RecordedRoot   string
	RecomputedRoot string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("block %d store inconsistency: recorded root %s, recomputed root %s",
		e.BlockNumber, e.RecordedRoot, e.RecomputedRoot)
}

// Store owns the sequence of heartbeat blocks. Block numbering is explicit
// state of the store value, never a package-level counter. When a durable
// action store is configured, action payloads are flushed there on add and
// evicted from memory; verification then reads the durable side back, which
// is what catches split-storage tampering.
type Store struct {
	mu           sync.RWMutex
	blocks       []*Block
	totalActions int

	actions persistence.IActionStore // optional durable side
	logger  *zap.Logger
}

// StorageStats is descriptive telemetry about the storage split, including
// the entry-count reduction versus a hypothetical one-entry-per-action
// ledger. It carries no correctness weight.
type StorageStats struct {
	TotalBlocks           int     `json:"total_blocks"`
	TotalActions          int     `json:"total_actions"`
	LedgerEntries         int     `json:"ledger_entries"`
	ActionStoreEntries    int     `json:"action_store_entries"`
	FlatLedgerEntries     int     `json:"flat_ledger_entries"`
	LedgerReductionFactor float64 `json:"ledger_reduction_factor"`
	AvgActionsPerBlock    float64 `json:"avg_actions_per_block"`
}

// NewStore creates a block store. actionStore may be nil, in which case
// blocks keep their action payloads in memory and verification runs against
// those.
func NewStore(actionStore persistence.IActionStore, logger *zap.Logger) *Store {
	return &Store{
		actions: actionStore,
		logger:  logger,
	}
}

// AddBlock closes one heartbeat's action batch into a new block with the
// next sequential block number, flushes the payloads to the durable store
// when one is configured, and returns the block.
func (s *Store) AddBlock(actions []types.ActionRecord, state types.MetabolicState, rechargeAmount float64) (*Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blk, err := NewBlock(uint64(len(s.blocks)), state, actions, rechargeAmount)
	if err != nil {
		return nil, err
	}

	if s.actions != nil {
		encoded, err := encodeActions(actions)
		if err != nil {
			return nil, err
		}
		if err := s.actions.SaveBlockActions(blk.BlockNumber, encoded); err != nil {
			return nil, fmt.Errorf("failed to persist block %d actions: %w", blk.BlockNumber, err)
		}
		blk.EvictActions()
	}

	s.blocks = append(s.blocks, blk)
	s.totalActions += blk.ActionsCount()

	s.logger.Sugar().Debugw("Block added",
		"block_number", blk.BlockNumber,
		"actions", blk.ActionsCount(),
		"metabolic_state", blk.MetabolicState,
		"merkle_root", blk.MerkleRoot,
	)
	return blk, nil
}

// GetBlock returns the block with the given number.
func (s *Store) GetBlock(blockNumber uint64) (*Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getBlockLocked(blockNumber)
}

func (s *Store) getBlockLocked(blockNumber uint64) (*Block, error) {
	if blockNumber >= uint64(len(s.blocks)) {
		return nil, fmt.Errorf("block %d out of range [0, %d)", blockNumber, len(s.blocks))
	}
	return s.blocks[blockNumber], nil
}

// VerifyBlock independently rebuilds a merkle tree from the block's
// currently stored actions and compares it to the recorded root. A mismatch
// means the action store diverged from the chained commitment and is
// returned as a *ConsistencyError.
func (s *Store) VerifyBlock(blockNumber uint64) error {
	s.mu.RLock()
	blk, err := s.getBlockLocked(blockNumber)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	records, err := s.currentActions(blk)
	if err != nil {
		return err
	}

	fresh, err := merkle.Build(records)
	if err != nil {
		return fmt.Errorf("failed to rebuild block %d tree: %w", blockNumber, err)
	}

	if fresh.RootHex() != blk.MerkleRoot {
		return &ConsistencyError{
			BlockNumber:    blockNumber,
			RecordedRoot:   blk.MerkleRoot,
			RecomputedRoot: fresh.RootHex(),
		}
	}
	return nil
}

// GetActionProof returns an inclusion proof for one action of one block.
func (s *Store) GetActionProof(blockNumber uint64, actionIndex int) (*merkle.Proof, error) {
	blk, err := s.GetBlock(blockNumber)
	if err != nil {
		return nil, err
	}
	return blk.GetProof(actionIndex)
}

// Len returns the number of blocks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}

// StorageStats reports block/action counts and the ledger entry reduction
// versus a flat one-entry-per-action design.
func (s *Store) StorageStats() *StorageStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &StorageStats{
		TotalBlocks:        len(s.blocks),
		TotalActions:       s.totalActions,
		LedgerEntries:      len(s.blocks),
		ActionStoreEntries: s.totalActions,
		FlatLedgerEntries:  s.totalActions + len(s.blocks),
	}
	if stats.LedgerEntries > 0 {
		stats.LedgerReductionFactor = round2(float64(stats.FlatLedgerEntries) / float64(stats.LedgerEntries))
	}
	if stats.TotalBlocks > 0 {
		stats.AvgActionsPerBlock = round2(float64(s.totalActions) / float64(len(s.blocks)))
	}
	return stats
}

// currentActions returns what the storage split currently holds for a
// block: the durable store's payloads when configured, the in-memory list
// otherwise.
func (s *Store) currentActions(blk *Block) ([]types.ActionRecord, error) {
	if s.actions == nil {
		return blk.Actions, nil
	}

	stored, err := s.actions.LoadBlockActions(blk.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to load block %d actions: %w", blk.BlockNumber, err)
	}
	if stored == nil {
		return nil, &ConsistencyError{
			BlockNumber:    blk.BlockNumber,
			RecordedRoot:   blk.MerkleRoot,
			RecomputedRoot: "", // no stored payload to recompute from
		}
	}

	records := make([]types.ActionRecord, len(stored))
	for i, raw := range stored {
		records[i] = types.RawRecord(raw)
	}
	return records, nil
}

func encodeActions(actions []types.ActionRecord) ([][]byte, error) {
	encoded := make([][]byte, len(actions))
	for i, a := range actions {
		data, err := a.CanonicalEncode()
		if err != nil {
			return nil, fmt.Errorf("invalid action %d: %w", i, err)
		}
		encoded[i] = data
	}
	return encoded, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
