package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/types"
)

// emptyTreeSentinel is hashed to produce the root of a tree with no leaves.
// An empty batch is a valid (if unusual) heartbeat outcome, not an error.
const emptyTreeSentinel = "empty"

// Build creates a binary merkle tree from an ordered batch of records.
// Records are hashed to leaves in the given order, then paired level by
// level; if a level has an odd count, the last node is duplicated as its
// own sibling before hashing up.
//
// An empty batch yields a deterministic sentinel root with zero leaves.
// The only error case is a record that fails canonical encoding.
func Build(records []types.ActionRecord) (*Tree, error) {
	if len(records) == 0 {
		root := sha256.Sum256([]byte(emptyTreeSentinel))
		return &Tree{
			Leaves: nil,
			Root:   root,
			levels: [][][32]byte{{root}},
		}, nil
	}

	leaves := make([][32]byte, len(records))
	for i, record := range records {
		leaf, err := HashRecord(record)
		if err != nil {
			return nil, fmt.Errorf("failed to hash record %d: %w", i, err)
		}
		leaves[i] = leaf
	}

	levels := make([][][32]byte, 0)
	levels = append(levels, leaves)

	currentLevel := leaves
	for len(currentLevel) > 1 {
		nextLevel := make([][32]byte, 0, (len(currentLevel)+1)/2)

		for i := 0; i < len(currentLevel); i += 2 {
			left := currentLevel[i]

			// If odd number of nodes, duplicate the last one
			var right [32]byte
			if i+1 < len(currentLevel) {
				right = currentLevel[i+1]
			} else {
				right = currentLevel[i]
			}

			nextLevel = append(nextLevel, hashPair(left, right))
		}

		levels = append(levels, nextLevel)
		currentLevel = nextLevel
	}

	return &Tree{
		Leaves: leaves,
		Root:   currentLevel[0],
		levels: levels,
	}, nil
}

// HashRecord computes the SHA-256 leaf hash of a record's canonical encoding.
func HashRecord(record types.ActionRecord) ([32]byte, error) {
	if record == nil {
		return [32]byte{}, fmt.Errorf("cannot hash nil record")
	}
	encoded, err := record.CanonicalEncode()
	if err != nil {
		return [32]byte{}, fmt.Errorf("canonical encoding failed: %w", err)
	}
	return sha256.Sum256(encoded), nil
}

// GetProof creates an inclusion proof for the leaf at the given index.
// The proof records, for each level from leaf to root, the sibling hash and
// the side it sits on relative to the path node.
func (t *Tree) GetProof(index int) (*Proof, error) {
	if index < 0 || index >= len(t.Leaves) {
		return nil, fmt.Errorf("leaf index %d out of range [0, %d)", index, len(t.Leaves))
	}

	siblings := make([]Sibling, 0, len(t.levels)-1)
	idx := index

	for level := 0; level < len(t.levels)-1; level++ {
		currentLevel := t.levels[level]

		var siblingIndex int
		var direction Direction
		if idx%2 == 0 {
			// Node is on the left, sibling is on the right
			siblingIndex = idx + 1
			direction = DirectionRight
		} else {
			// Node is on the right, sibling is on the left
			siblingIndex = idx - 1
			direction = DirectionLeft
		}

		// Last node of an odd-count level is its own sibling
		if siblingIndex >= len(currentLevel) {
			siblingIndex = idx
			direction = DirectionRight
		}

		siblings = append(siblings, Sibling{
			Hash:      hex.EncodeToString(currentLevel[siblingIndex][:]),
			Direction: direction,
		})

		idx /= 2
	}

	return &Proof{
		LeafIndex: index,
		LeafHash:  hex.EncodeToString(t.Leaves[index][:]),
		Siblings:  siblings,
		Root:      t.RootHex(),
	}, nil
}

// Depth returns the tree height: 0 for 0 or 1 leaves, ceil(log2(n)) otherwise.
func (t *Tree) Depth() int {
	return len(t.levels) - 1
}

// Size returns the number of leaves.
func (t *Tree) Size() int {
	return len(t.Leaves)
}

// RootHex returns the root as a 64-hex-character string.
func (t *Tree) RootHex() string {
	return hex.EncodeToString(t.Root[:])
}

// hashPair computes sha256(left || right) over the raw 32-byte hashes.
func hashPair(left, right [32]byte) [32]byte {
	data := make([]byte, 64)
	copy(data[0:32], left[:])
	copy(data[32:64], right[:])
	return sha256.Sum256(data)
}
