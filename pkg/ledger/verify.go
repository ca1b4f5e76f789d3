package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/types"
)

// Break localizes one chain inconsistency for an operator.
type Break struct {
	Sequence uint64 `json:"sequence"`
	Reason   string `json:"reason"`
}

// VerifyResult is the structured outcome of a full chain scan. Integrity
// failures are enumerable data, not exceptions: a scan collects every break
// it finds so a single report localizes all tampered boundaries.
type VerifyResult struct {
	Valid   bool    `json:"valid"`
	Entries int     `json:"entries"`
	Breaks  []Break `json:"breaks,omitempty"`
}

// Err returns a ChainIntegrityError carrying all breaks, or nil when the
// chain is intact.
func (r *VerifyResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ChainIntegrityError{Breaks: r.Breaks}
}

// ChainIntegrityError reports the full set of offending sequence numbers
// found by a chain scan. It is a security event to surface, never retried.
type ChainIntegrityError struct {
	Breaks []Break
}

func (e *ChainIntegrityError) Error() string {
	seqs := make([]string, len(e.Breaks))
	for i, b := range e.Breaks {
		seqs[i] = fmt.Sprintf("%d (%s)", b.Sequence, b.Reason)
	}
	return fmt.Sprintf("hash chain broken at %d entries: %s", len(e.Breaks), strings.Join(seqs, ", "))
}

// VerifyChain checks the hash-chain and self-hash invariants over an
// already-loaded, sequence-ordered entry slice. Both ledger backends share
// this walk. The scan continues past the first divergence and records every
// break; cancellation via ctx simply stops scanning.
func VerifyChain(ctx context.Context, entries []*Entry) (*VerifyResult, error) {
	result := &VerifyResult{Valid: true, Entries: len(entries)}

	expectedPrev := GenesisHash
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if entry.Sequence != uint64(i) {
			result.Breaks = append(result.Breaks, Break{
				Sequence: entry.Sequence,
				Reason:   fmt.Sprintf("sequence mismatch: stored %d at position %d", entry.Sequence, i),
			})
		}
		if entry.PrevHash != expectedPrev {
			result.Breaks = append(result.Breaks, Break{
				Sequence: entry.Sequence,
				Reason:   "prev_hash does not match predecessor entry_hash",
			})
		}
		if recomputed := ComputeEntryHash(entry); recomputed != entry.EntryHash {
			result.Breaks = append(result.Breaks, Break{
				Sequence: entry.Sequence,
				Reason:   "entry_hash does not match entry fields",
			})
		}

		expectedPrev = entry.EntryHash
	}

	result.Valid = len(result.Breaks) == 0
	return result, nil
}

// EncodePayload canonically encodes an append payload, failing fast on
// malformed records before anything is hashed or stored.
func EncodePayload(payload types.ActionRecord) ([]byte, error) {
	if payload == nil {
		return nil, fmt.Errorf("cannot append nil payload")
	}
	encoded, err := payload.CanonicalEncode()
	if err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	return encoded, nil
}
