package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// GenesisHash is the fixed sentinel used as prev_hash of the first entry.
// The chain anchors to this constant rather than to a computed value.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Entry is one record of the append-only hash chain. Entries are immutable
// once appended; EntryHash commits to every other field, and each entry
// embeds the hash of its predecessor.
//
// Payload holds the canonical encoding of whatever was appended, in the
// common case the compact projection of a heartbeat merkle block, never the
// block's individual action payloads.
type Entry struct {
	Sequence       uint64          `json:"sequence"`
	Timestamp      time.Time       `json:"timestamp"`
	PrevHash       string          `json:"prev_hash"`
	Payload        json.RawMessage `json:"payload"`
	SignerIdentity string          `json:"signer_identity"`
	Signature      []byte          `json:"signature"`
	HWSigned       bool            `json:"hw_signed"`
	EntryHash      string          `json:"entry_hash"`
}

// ComputeEntryHash computes the deterministic SHA-256 hash an entry must
// carry: a pipe-separated digest over sequence, timestamp, prev_hash, the
// canonical payload, signer identity, signature, and the hw_signed flag.
// The signature is hashed but never validated here; a forged signature is
// still chain-detectable because it is committed into the entry hash.
func ComputeEntryHash(e *Entry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|%s|%s|%t",
		e.Sequence, e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.PrevHash, e.Payload, e.SignerIdentity,
		hex.EncodeToString(e.Signature), e.HWSigned,
	)
	return hex.EncodeToString(h.Sum(nil))
}

// NewEntry builds and hashes the next entry of a chain whose current tip
// hash is prevHash (GenesisHash when the chain is empty).
func NewEntry(sequence uint64, prevHash string, payload []byte, signerIdentity string, signature []byte, hwSigned bool) *Entry {
	entry := &Entry{
		Sequence:       sequence,
		Timestamp:      time.Now().UTC(),
		PrevHash:       prevHash,
		Payload:        payload,
		SignerIdentity: signerIdentity,
		Signature:      signature,
		HWSigned:       hwSigned,
	}
	entry.EntryHash = ComputeEntryHash(entry)
	return entry
}
