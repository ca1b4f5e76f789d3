// Package persistence defines the durable action store: the bulk side of
// the ledger's storage split. The compact hash chain holds one entry per
// heartbeat block; the full action payloads live here, keyed by block
// number, and the block store re-verifies merkle roots against whatever is
// currently stored so out-of-band mutation of this side is detectable.
package persistence

// IActionStore is the interface for persisting block action payloads.
// All implementations must be thread-safe; verification reads run
// concurrently with heartbeat writes.
//
// Actions are stored as their canonical encodings, in leaf order, so a
// reload reproduces the exact bytes that were hashed into the merkle tree.
type IActionStore interface {
	// SaveBlockActions persists the canonical action encodings for a block.
	// Overwrites any existing payload for the same block number.
	SaveBlockActions(blockNumber uint64, actions [][]byte) error

	// LoadBlockActions retrieves a block's action encodings in leaf order.
	// Returns nil if the block has no stored payload, error only on
	// storage failure.
	LoadBlockActions(blockNumber uint64) ([][]byte, error)

	// ListBlockNumbers returns all block numbers with stored payloads,
	// sorted ascending. Returns an empty slice when the store is empty.
	ListBlockNumbers() ([]uint64, error)

	// DeleteBlockActions removes a block's payload. Idempotent.
	DeleteBlockActions(blockNumber uint64) error

	// Close cleanly shuts down the store. Idempotent; after Close all
	// other operations return errors.
	Close() error

	// HealthCheck verifies the store is operational. Called during startup
	// to fail fast.
	HealthCheck() error
}
