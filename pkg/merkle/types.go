package merkle

// Direction indicates which side of the current path node a proof sibling
// sits on when folding a leaf hash up to the root.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Tree is a binary merkle tree over canonically encoded action records.
// Leaves are SHA-256 hashes of canonical record encodings; internal nodes
// are SHA-256(left || right). Leaf and internal hashing share the same
// function, matching the documented chain format.
type Tree struct {
	// Leaves contains the leaf hashes in record order
	Leaves [][32]byte

	// Root is the merkle root hash
	Root [32]byte

	// levels stores all tree levels for proof generation
	// levels[0] = leaves, levels[len-1] = root
	levels [][][32]byte
}

// Sibling is one step of an inclusion proof: the sibling hash at a level
// and the side it occupies relative to the path node.
type Sibling struct {
	Hash      string    `json:"hash"`
	Direction Direction `json:"direction"`
}

// Proof is a self-contained inclusion proof for one leaf. It verifies as a
// pure function of its own fields, with no access to the originating tree,
// and round-trips losslessly through JSON. Hashes are 64-hex-character
// strings per the wire format.
type Proof struct {
	LeafIndex int       `json:"leaf_index"`
	LeafHash  string    `json:"leaf_hash"`
	Siblings  []Sibling `json:"siblings"`
	Root      string    `json:"root"`
}
