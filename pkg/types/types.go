package types

import (
	"encoding/json"
	"fmt"

	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/util"
)

// MetabolicState tags a heartbeat block with the scheduler phase it was
// produced in. The ledger core treats it as an opaque label; the set of
// values is owned by the external scheduler.
type MetabolicState string

const (
	MetabolicStateWake   MetabolicState = "wake"
	MetabolicStateFocus  MetabolicState = "focus"
	MetabolicStateRest   MetabolicState = "rest"
	MetabolicStateDream  MetabolicState = "dream"
	MetabolicStateCrisis MetabolicState = "crisis"
)

func (m MetabolicState) String() string {
	return string(m)
}

// ActionRecord is an opaque, canonically-encodable audit payload.
// The ledger core never inspects a record's contents beyond encoding it
// for hashing. Two logically equal records must encode to identical bytes
// regardless of field order or construction path.
type ActionRecord interface {
	// CanonicalEncode returns the deterministic, key-sorted, compact JSON
	// encoding of the record.
	CanonicalEncode() ([]byte, error)
}

// Record is a map-backed ActionRecord for duck-typed action payloads
// (action kind, actor, target, arbitrary fields).
type Record map[string]any

// CanonicalEncode implements ActionRecord.
func (r Record) CanonicalEncode() ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("cannot encode nil record")
	}
	return util.CanonicalJSON(r)
}

// RawRecord is an ActionRecord that has already been canonically encoded,
// e.g. one reloaded from a durable action store. The bytes are hashed as-is,
// which keeps leaf hashes byte-for-byte reproducible across a store round-trip.
type RawRecord []byte

// CanonicalEncode implements ActionRecord.
func (r RawRecord) CanonicalEncode() ([]byte, error) {
	if len(r) == 0 {
		return nil, fmt.Errorf("cannot encode empty raw record")
	}
	if !json.Valid(r) {
		return nil, fmt.Errorf("raw record is not valid JSON")
	}
	return r, nil
}
