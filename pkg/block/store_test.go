package block

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	memorystore "github.com/hardbound-labs/heartbeat-ledger-go/pkg/persistence/memory"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/types"
)

// TestAddBlockSequentialNumbering verifies block numbers are dense and ordered
func TestAddBlockSequentialNumbering(t *testing.T) {
	store := NewStore(nil, zap.NewNop())

	for i := 0; i < 3; i++ {
		blk, err := store.AddBlock(fourActions(), types.MetabolicStateWake, 0)
		require.NoError(t, err)
		require.Equal(t, uint64(i), blk.BlockNumber)
	}
	require.Equal(t, 3, store.Len())
}

// TestAddBlockPersistsAndEvicts verifies the storage split: payloads go to
// the durable store, in-memory copies are dropped
func TestAddBlockPersistsAndEvicts(t *testing.T) {
	actions := memorystore.NewActionStore()
	store := NewStore(actions, zap.NewNop())

	blk, err := store.AddBlock(fourActions(), types.MetabolicStateFocus, 1.0)
	require.NoError(t, err)
	require.Nil(t, blk.Actions)
	require.Equal(t, 4, blk.ActionsCount())

	stored, err := actions.LoadBlockActions(blk.BlockNumber)
	require.NoError(t, err)
	require.Len(t, stored, 4)
}

// TestVerifyBlockInMemory verifies the in-memory path with no durable store
func TestVerifyBlockInMemory(t *testing.T) {
	store := NewStore(nil, zap.NewNop())
	blk, err := store.AddBlock(fourActions(), types.MetabolicStateWake, 0)
	require.NoError(t, err)

	require.NoError(t, store.VerifyBlock(blk.BlockNumber))

	// Mutating the in-memory batch diverges from the committed root
	blk.Actions[2] = types.Record{"type": "validate_schema", "actor": "mallory"}
	err = store.VerifyBlock(blk.BlockNumber)
	require.Error(t, err)

	var consistency *ConsistencyError
	require.True(t, errors.As(err, &consistency))
	require.Equal(t, blk.BlockNumber, consistency.BlockNumber)
	require.Equal(t, blk.MerkleRoot, consistency.RecordedRoot)
	require.NotEqual(t, consistency.RecordedRoot, consistency.RecomputedRoot)
}

// TestVerifyBlockDetectsStoreTampering verifies that out-of-band mutation of
// the durable action store is caught against the committed root
func TestVerifyBlockDetectsStoreTampering(t *testing.T) {
	actions := memorystore.NewActionStore()
	store := NewStore(actions, zap.NewNop())

	blk, err := store.AddBlock(fourActions(), types.MetabolicStateWake, 0)
	require.NoError(t, err)
	require.NoError(t, store.VerifyBlock(blk.BlockNumber))

	// Rewrite one stored payload behind the block store's back
	stored, err := actions.LoadBlockActions(blk.BlockNumber)
	require.NoError(t, err)
	stored[1] = []byte(`{"actor":"mallory","type":"review_pr"}`)
	require.NoError(t, actions.SaveBlockActions(blk.BlockNumber, stored))

	err = store.VerifyBlock(blk.BlockNumber)
	var consistency *ConsistencyError
	require.True(t, errors.As(err, &consistency))
	require.Equal(t, blk.MerkleRoot, consistency.RecordedRoot)
}

// TestVerifyBlockDetectsDeletedPayload verifies a missing durable payload is
// a consistency failure, not a silent pass
func TestVerifyBlockDetectsDeletedPayload(t *testing.T) {
	actions := memorystore.NewActionStore()
	store := NewStore(actions, zap.NewNop())

	blk, err := store.AddBlock(fourActions(), types.MetabolicStateWake, 0)
	require.NoError(t, err)
	require.NoError(t, actions.DeleteBlockActions(blk.BlockNumber))

	err = store.VerifyBlock(blk.BlockNumber)
	var consistency *ConsistencyError
	require.True(t, errors.As(err, &consistency))
	require.Empty(t, consistency.RecomputedRoot)
}

// TestGetActionProof verifies proofs issued through the store verify and
// carry the block's root
func TestGetActionProof(t *testing.T) {
	actions := memorystore.NewActionStore()
	store := NewStore(actions, zap.NewNop())

	blk, err := store.AddBlock(fourActions(), types.MetabolicStateWake, 0)
	require.NoError(t, err)

	proof, err := store.GetActionProof(blk.BlockNumber, 2)
	require.NoError(t, err)
	require.Equal(t, blk.MerkleRoot, proof.Root)
	require.True(t, proof.Verify())

	_, err = store.GetActionProof(99, 0)
	require.Error(t, err)

	_, err = store.GetActionProof(blk.BlockNumber, 4)
	require.Error(t, err)
}

// TestStorageStats verifies the reduction telemetry over a mixed history
func TestStorageStats(t *testing.T) {
	store := NewStore(nil, zap.NewNop())

	// Three blocks of 4, 4, and 2 actions: 10 actions total
	_, err := store.AddBlock(fourActions(), types.MetabolicStateWake, 0)
	require.NoError(t, err)
	_, err = store.AddBlock(fourActions(), types.MetabolicStateFocus, 0)
	require.NoError(t, err)
	_, err = store.AddBlock(fourActions()[:2], types.MetabolicStateRest, 0)
	require.NoError(t, err)

	stats := store.StorageStats()
	require.Equal(t, 3, stats.TotalBlocks)
	require.Equal(t, 10, stats.TotalActions)
	require.Equal(t, 3, stats.LedgerEntries)
	require.Equal(t, 10, stats.ActionStoreEntries)
	require.Equal(t, 13, stats.FlatLedgerEntries)
	require.InDelta(t, 4.33, stats.LedgerReductionFactor, 0.001)
	require.InDelta(t, 3.33, stats.AvgActionsPerBlock, 0.001)
}

// TestStorageStatsEmpty verifies zero-division safety
func TestStorageStatsEmpty(t *testing.T) {
	store := NewStore(nil, zap.NewNop())

	stats := store.StorageStats()
	require.Equal(t, 0, stats.TotalBlocks)
	require.Zero(t, stats.LedgerReductionFactor)
	require.Zero(t, stats.AvgActionsPerBlock)
}

// TestGetBlockBounds tests block number validation
func TestGetBlockBounds(t *testing.T) {
	store := NewStore(nil, zap.NewNop())
	_, err := store.GetBlock(0)
	require.Error(t, err)
}
