package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/types"
)

// createTestRecords creates n distinct action records
func createTestRecords(n int) []types.ActionRecord {
	records := make([]types.ActionRecord, n)
	for i := 0; i < n; i++ {
		records[i] = types.Record{
			"type":   "test_action",
			"actor":  fmt.Sprintf("agent-%d", i),
			"target": fmt.Sprintf("resource-%d", i),
		}
	}
	return records
}

// TestBuildTree tests tree construction and proof generation for various batch sizes
func TestBuildTree(t *testing.T) {
	testCases := []struct {
		name        string
		numRecords  int
		expectDepth int
	}{
		{"Single record", 1, 0},
		{"Two records", 2, 1},
		{"Three records (odd)", 3, 2},
		{"Four records (power of 2)", 4, 2},
		{"Five records (odd)", 5, 3},
		{"Seven records", 7, 3},
		{"Eight records (power of 2)", 8, 3},
		{"Fifteen records", 15, 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			records := createTestRecords(tc.numRecords)
			tree, err := Build(records)
			require.NoError(t, err)
			require.NotNil(t, tree)

			require.Equal(t, tc.numRecords, tree.Size())
			require.Equal(t, tc.expectDepth, tree.Depth())
			require.NotEqual(t, [32]byte{}, tree.Root)
			require.Len(t, tree.RootHex(), 64)

			// Every leaf must yield a proof that verifies against the root
			for i := 0; i < tc.numRecords; i++ {
				proof, err := tree.GetProof(i)
				require.NoError(t, err)
				require.Equal(t, i, proof.LeafIndex)
				require.Equal(t, hex.EncodeToString(tree.Leaves[i][:]), proof.LeafHash)
				require.Equal(t, tree.RootHex(), proof.Root)
				require.Len(t, proof.Siblings, tc.expectDepth)
				require.True(t, proof.Verify(), "Proof for leaf %d should be valid", i)
			}
		})
	}
}

// TestBuildTreeEmpty tests the deterministic sentinel root for an empty batch
func TestBuildTreeEmpty(t *testing.T) {
	tree, err := Build(nil)
	require.NoError(t, err)
	require.Equal(t, 0, tree.Size())
	require.Equal(t, 0, tree.Depth())

	expected := sha256.Sum256([]byte("empty"))
	require.Equal(t, expected, tree.Root)

	// Empty tree has no leaves to prove
	_, err = tree.GetProof(0)
	require.Error(t, err)
}

// TestBuildTreeDeterministic verifies that the same batch always produces the same root
func TestBuildTreeDeterministic(t *testing.T) {
	records := createTestRecords(6)

	tree1, err := Build(records)
	require.NoError(t, err)
	tree2, err := Build(records)
	require.NoError(t, err)

	require.Equal(t, tree1.Root, tree2.Root)
	require.Equal(t, tree1.Leaves, tree2.Leaves)
}

// TestBuildTreeOrderSensitive verifies that reordering the batch changes the root
func TestBuildTreeOrderSensitive(t *testing.T) {
	records := createTestRecords(4)
	reversed := []types.ActionRecord{records[3], records[2], records[1], records[0]}

	tree1, err := Build(records)
	require.NoError(t, err)
	tree2, err := Build(reversed)
	require.NoError(t, err)

	require.NotEqual(t, tree1.Root, tree2.Root)
}

// TestFourRecordScenario walks a concrete four-action batch end to end
func TestFourRecordScenario(t *testing.T) {
	records := []types.ActionRecord{
		types.Record{"type": "run_analysis", "actor": "alice"},
		types.Record{"type": "review_pr", "actor": "bob"},
		types.Record{"type": "validate_schema", "actor": "charlie"},
		types.Record{"type": "run_diagnostics", "actor": "alice"},
	}

	tree, err := Build(records)
	require.NoError(t, err)
	require.Equal(t, 4, tree.Size())
	require.Equal(t, 2, tree.Depth())

	// The root must equal the hand-computed two-level fold
	h0, err := HashRecord(records[0])
	require.NoError(t, err)
	h1, err := HashRecord(records[1])
	require.NoError(t, err)
	h2, err := HashRecord(records[2])
	require.NoError(t, err)
	h3, err := HashRecord(records[3])
	require.NoError(t, err)

	expectedRoot := hashPair(hashPair(h0, h1), hashPair(h2, h3))
	require.Equal(t, expectedRoot, tree.Root)

	for i := range records {
		proof, err := tree.GetProof(i)
		require.NoError(t, err)
		require.True(t, proof.Verify())
	}
}

// TestOddLeafDuplication verifies the last node of an odd level pairs with itself
func TestOddLeafDuplication(t *testing.T) {
	records := createTestRecords(3)
	tree, err := Build(records)
	require.NoError(t, err)

	h0, err := HashRecord(records[0])
	require.NoError(t, err)
	h1, err := HashRecord(records[1])
	require.NoError(t, err)
	h2, err := HashRecord(records[2])
	require.NoError(t, err)

	// Leaf 2 is duplicated as its own right sibling
	expectedRoot := hashPair(hashPair(h0, h1), hashPair(h2, h2))
	require.Equal(t, expectedRoot, tree.Root)

	// Its proof records itself as the sibling, on the right
	proof, err := tree.GetProof(2)
	require.NoError(t, err)
	require.Equal(t, proof.LeafHash, proof.Siblings[0].Hash)
	require.Equal(t, DirectionRight, proof.Siblings[0].Direction)
	require.True(t, proof.Verify())
}

// TestGetProofBounds tests index validation
func TestGetProofBounds(t *testing.T) {
	tree, err := Build(createTestRecords(3))
	require.NoError(t, err)

	_, err = tree.GetProof(-1)
	require.Error(t, err)

	_, err = tree.GetProof(3)
	require.Error(t, err)
}

// TestHashRecordNil tests that nil records are rejected
func TestHashRecordNil(t *testing.T) {
	_, err := HashRecord(nil)
	require.Error(t, err)
}

// TestHashRecordFieldOrderIndependent verifies logically equal records hash identically
func TestHashRecordFieldOrderIndependent(t *testing.T) {
	a := types.Record{"actor": "alice", "type": "run_analysis", "count": 3}
	b := types.Record{"count": 3, "type": "run_analysis", "actor": "alice"}

	ha, err := HashRecord(a)
	require.NoError(t, err)
	hb, err := HashRecord(b)
	require.NoError(t, err)
	require.Equal(t, ha, hb)
}
