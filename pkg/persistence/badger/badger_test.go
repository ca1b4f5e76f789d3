package badger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// openTestStore opens an action store in a temp directory
func openTestStore(t *testing.T) *ActionStore {
	t.Helper()
	store, err := NewActionStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testActions() [][]byte {
	return [][]byte{
		[]byte(`{"actor":"alice","type":"run_analysis"}`),
		[]byte(`{"actor":"bob","type":"review_pr"}`),
		[]byte(`{"actor":"charlie","type":"validate_schema"}`),
	}
}

// TestSaveLoadRoundTrip verifies actions survive a save/load cycle unchanged
func TestSaveLoadRoundTrip(t *testing.T) {
	store := openTestStore(t)
	actions := testActions()

	require.NoError(t, store.SaveBlockActions(3, actions))

	loaded, err := store.LoadBlockActions(3)
	require.NoError(t, err)
	require.Equal(t, actions, loaded)
}

// TestLoadMissingBlock verifies absence is nil, nil rather than an error
func TestLoadMissingBlock(t *testing.T) {
	store := openTestStore(t)

	loaded, err := store.LoadBlockActions(999)
	require.NoError(t, err)
	require.Nil(t, loaded)
}

// TestActionsSurviveReopen verifies payloads persist across close and reopen
func TestActionsSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewActionStore(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.SaveBlockActions(0, testActions()))
	require.NoError(t, store.SaveBlockActions(1, testActions()[:1]))
	require.NoError(t, store.Close())

	reopened, err := NewActionStore(dir, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	numbers, err := reopened.ListBlockNumbers()
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1}, numbers)

	loaded, err := reopened.LoadBlockActions(0)
	require.NoError(t, err)
	require.Equal(t, testActions(), loaded)
}

// TestListBlockNumbersOrdered verifies big-endian keys keep listing ascending
func TestListBlockNumbersOrdered(t *testing.T) {
	store := openTestStore(t)
	for _, n := range []uint64{300, 2, 1000000, 45} {
		require.NoError(t, store.SaveBlockActions(n, testActions()))
	}

	numbers, err := store.ListBlockNumbers()
	require.NoError(t, err)
	require.Equal(t, []uint64{2, 45, 300, 1000000}, numbers)
}

// TestDeleteBlockActions verifies deletion removes the payload and the listing entry
func TestDeleteBlockActions(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SaveBlockActions(5, testActions()))
	require.NoError(t, store.SaveBlockActions(6, testActions()))

	require.NoError(t, store.DeleteBlockActions(5))

	loaded, err := store.LoadBlockActions(5)
	require.NoError(t, err)
	require.Nil(t, loaded)

	numbers, err := store.ListBlockNumbers()
	require.NoError(t, err)
	require.Equal(t, []uint64{6}, numbers)
}

// TestSaveNilActions verifies nil batches are rejected
func TestSaveNilActions(t *testing.T) {
	store := openTestStore(t)
	require.Error(t, store.SaveBlockActions(0, nil))
}

// TestClosedStore verifies operations fail after Close
func TestClosedStore(t *testing.T) {
	store, err := NewActionStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.HealthCheck())
	require.NoError(t, store.Close())

	require.Error(t, store.HealthCheck())
	require.Error(t, store.SaveBlockActions(0, testActions()))
	_, err = store.LoadBlockActions(0)
	require.Error(t, err)

	// Close is idempotent
	require.NoError(t, store.Close())
}
