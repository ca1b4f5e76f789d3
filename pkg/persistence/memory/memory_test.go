package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testActions() [][]byte {
	return [][]byte{
		[]byte(`{"actor":"alice","type":"run_analysis"}`),
		[]byte(`{"actor":"bob","type":"review_pr"}`),
	}
}

// TestSaveLoadRoundTrip verifies actions survive a save/load cycle unchanged
func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewActionStore()
	actions := testActions()

	require.NoError(t, store.SaveBlockActions(7, actions))

	loaded, err := store.LoadBlockActions(7)
	require.NoError(t, err)
	require.Equal(t, actions, loaded)
}

// TestLoadMissingBlock verifies absence is nil, nil rather than an error
func TestLoadMissingBlock(t *testing.T) {
	store := NewActionStore()

	loaded, err := store.LoadBlockActions(42)
	require.NoError(t, err)
	require.Nil(t, loaded)
}

// TestDeepCopyIsolation verifies callers cannot mutate stored payloads
func TestDeepCopyIsolation(t *testing.T) {
	store := NewActionStore()
	actions := testActions()
	require.NoError(t, store.SaveBlockActions(1, actions))

	// Mutating the caller's slice after save must not affect the store
	actions[0][0] = 'X'
	loaded, err := store.LoadBlockActions(1)
	require.NoError(t, err)
	require.Equal(t, byte('{'), loaded[0][0])

	// Mutating a loaded slice must not affect subsequent loads
	loaded[1][0] = 'Y'
	reloaded, err := store.LoadBlockActions(1)
	require.NoError(t, err)
	require.Equal(t, byte('{'), reloaded[1][0])
}

// TestListBlockNumbersSorted verifies listing is ascending regardless of insert order
func TestListBlockNumbersSorted(t *testing.T) {
	store := NewActionStore()
	for _, n := range []uint64{5, 0, 3, 9, 1} {
		require.NoError(t, store.SaveBlockActions(n, testActions()))
	}

	numbers, err := store.ListBlockNumbers()
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1, 3, 5, 9}, numbers)
}

// TestDeleteBlockActions verifies deletion and idempotency
func TestDeleteBlockActions(t *testing.T) {
	store := NewActionStore()
	require.NoError(t, store.SaveBlockActions(2, testActions()))

	require.NoError(t, store.DeleteBlockActions(2))
	loaded, err := store.LoadBlockActions(2)
	require.NoError(t, err)
	require.Nil(t, loaded)

	// Deleting an absent block is not an error
	require.NoError(t, store.DeleteBlockActions(2))
}

// TestSaveNilActions verifies nil batches are rejected
func TestSaveNilActions(t *testing.T) {
	store := NewActionStore()
	require.Error(t, store.SaveBlockActions(0, nil))
}

// TestClosedStore verifies all operations fail after Close
func TestClosedStore(t *testing.T) {
	store := NewActionStore()
	require.NoError(t, store.SaveBlockActions(0, testActions()))
	require.NoError(t, store.HealthCheck())
	require.NoError(t, store.Close())

	require.Error(t, store.HealthCheck())
	require.Error(t, store.SaveBlockActions(1, testActions()))
	_, err := store.LoadBlockActions(0)
	require.Error(t, err)
	_, err = store.ListBlockNumbers()
	require.Error(t, err)
	require.Error(t, store.DeleteBlockActions(0))
}
