// Package ledger implements the append-only hash-chained audit log that
// heartbeat merkle blocks are projected into.
//
// Each entry embeds the SHA-256 of its predecessor; the first entry chains
// from the GenesisHash sentinel. There is no delete or update operation.
// Verify walks the whole log and localizes every break it finds rather than
// stopping at the first, since deletions and replays can sever the chain at
// multiple boundaries.
//
// Two implementations are provided:
//   - memory.Ledger: in-process, for testing and development.
//   - badger.Ledger: durable, for production use.
package ledger

import (
	"context"

	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/types"
)

// Ledger is the append-only hash chain. Exactly one caller appends at a
// time; callers serialize writes externally. Reads may run concurrently and
// tolerate the chain growing between calls.
type Ledger interface {
	// Append chains a new entry to the tip. The payload is canonically
	// encoded and committed into the entry hash together with the signer
	// identity and opaque signature bytes. Returns the stored entry.
	Append(ctx context.Context, payload types.ActionRecord, signerIdentity string, signature []byte, hwSigned bool) (*Entry, error)

	// Get returns the entry at the given sequence number.
	Get(ctx context.Context, sequence uint64) (*Entry, error)

	// Len returns the total number of entries.
	Len(ctx context.Context) (int, error)

	// Verify walks the entire chain, recomputing each entry's hash and the
	// expected prev_hash link, and reports every offending sequence number.
	Verify(ctx context.Context) (*VerifyResult, error)

	// Root returns the tip entry hash, or GenesisHash for an empty chain.
	Root(ctx context.Context) (string, error)

	// Close releases underlying resources. Idempotent.
	Close() error
}
