package merkle

import (
	"encoding/hex"
)

// Verify folds the leaf hash through each sibling in order and compares the
// result to the declared root. It is a pure function of the proof's own
// fields: no tree access, no shared state.
//
// The result is a plain boolean rather than an error because proof checking
// is inherently local and callers batch-check many proofs; a malformed hash
// string simply fails verification.
func (p *Proof) Verify() bool {
	current, ok := decodeHash(p.LeafHash)
	if !ok {
		return false
	}

	for _, sibling := range p.Siblings {
		sib, ok := decodeHash(sibling.Hash)
		if !ok {
			return false
		}
		switch sibling.Direction {
		case DirectionLeft:
			current = hashPair(sib, current)
		case DirectionRight:
			current = hashPair(current, sib)
		default:
			return false
		}
	}

	root, ok := decodeHash(p.Root)
	if !ok {
		return false
	}
	return current == root
}

// decodeHash parses a 64-hex-character hash string into its 32 raw bytes.
func decodeHash(s string) ([32]byte, bool) {
	var out [32]byte
	if len(s) != 64 {
		return out, false
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, false
	}
	copy(out[:], raw)
	return out, true
}
