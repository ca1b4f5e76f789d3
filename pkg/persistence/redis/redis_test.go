package redis

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// getTestRedisAddress returns the Redis address for testing.
// Uses REDIS_TEST_ADDRESS env var if set, otherwise defaults to localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// requireRedis skips the test when no Redis server is reachable. Each test
// gets a unique key prefix so runs do not interfere with each other.
func requireRedis(t *testing.T) *ActionStore {
	t.Helper()

	cfg := &Config{
		Address:   getTestRedisAddress(),
		DB:        15, // Use DB 15 for tests to avoid conflicts
		KeyPrefix: fmt.Sprintf("test:%d:", time.Now().UnixNano()),
	}

	store, err := NewActionStore(cfg, zap.NewNop())
	if err != nil {
		t.Skipf("Redis not available at %s: %v", cfg.Address, err)
		return nil
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testActions() [][]byte {
	return [][]byte{
		[]byte(`{"actor":"alice","type":"run_analysis"}`),
		[]byte(`{"actor":"bob","type":"review_pr"}`),
	}
}

// TestSaveLoadRoundTrip verifies actions survive a save/load cycle unchanged
func TestSaveLoadRoundTrip(t *testing.T) {
	store := requireRedis(t)
	actions := testActions()

	require.NoError(t, store.SaveBlockActions(0, actions))

	loaded, err := store.LoadBlockActions(0)
	require.NoError(t, err)
	require.Equal(t, actions, loaded)

	// Cleanup for the shared test database
	require.NoError(t, store.DeleteBlockActions(0))
}

// TestLoadMissingBlock verifies absence is nil, nil rather than an error
func TestLoadMissingBlock(t *testing.T) {
	store := requireRedis(t)

	loaded, err := store.LoadBlockActions(424242)
	require.NoError(t, err)
	require.Nil(t, loaded)
}

// TestListAndDelete verifies the index set tracks saves and deletes
func TestListAndDelete(t *testing.T) {
	store := requireRedis(t)

	for _, n := range []uint64{9, 2, 5} {
		require.NoError(t, store.SaveBlockActions(n, testActions()))
	}

	numbers, err := store.ListBlockNumbers()
	require.NoError(t, err)
	require.Equal(t, []uint64{2, 5, 9}, numbers)

	require.NoError(t, store.DeleteBlockActions(5))
	numbers, err = store.ListBlockNumbers()
	require.NoError(t, err)
	require.Equal(t, []uint64{2, 9}, numbers)

	for _, n := range []uint64{2, 9} {
		require.NoError(t, store.DeleteBlockActions(n))
	}
}

// TestHealthCheckAndClose verifies ping-based health and closed-store errors
func TestHealthCheckAndClose(t *testing.T) {
	store := requireRedis(t)
	require.NoError(t, store.HealthCheck())

	require.NoError(t, store.Close())
	require.Error(t, store.HealthCheck())
	require.Error(t, store.SaveBlockActions(0, testActions()))

	// Close is idempotent
	require.NoError(t, store.Close())
}
