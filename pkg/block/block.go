// Package block implements heartbeat merkle blocks: batches of authorized
// actions collected during one scheduling interval and committed as a
// single merkle root, plus the store that owns the block sequence.
package block

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/merkle"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/types"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/util"
)

// Block is one heartbeat's worth of actions committed under a merkle root.
// The block owns its action list exclusively until it is flushed to a
// durable store, after which the payloads may be evicted from memory; the
// root, leaf count, and proof tree survive eviction.
type Block struct {
	BlockNumber    uint64
	MetabolicState types.MetabolicState
	Actions        []types.ActionRecord
	MerkleRoot     string
	Timestamp      time.Time
	RechargeAmount float64

	actionsCount int

	mu   sync.Mutex
	tree *merkle.Tree
}

// NewBlock creates a block over the given actions and commits its merkle
// root immediately. The action slice is owned by the block from here on.
func NewBlock(blockNumber uint64, state types.MetabolicState, actions []types.ActionRecord, rechargeAmount float64) (*Block, error) {
	b := &Block{
		BlockNumber:    blockNumber,
		MetabolicState: state,
		Actions:        actions,
		Timestamp:      time.Now().UTC(),
		RechargeAmount: rechargeAmount,
		actionsCount:   len(actions),
	}
	if err := b.Build(); err != nil {
		return nil, err
	}
	return b, nil
}

// Build constructs the internal merkle tree and records its root. It is
// idempotent: once the tree exists it is never rebuilt, so the committed
// root cannot drift even if the action slice is later mutated or evicted.
func (b *Block) Build() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buildLocked()
}

func (b *Block) buildLocked() error {
	if b.tree != nil {
		return nil
	}
	tree, err := merkle.Build(b.Actions)
	if err != nil {
		return fmt.Errorf("block %d: %w", b.BlockNumber, err)
	}
	b.tree = tree
	b.MerkleRoot = tree.RootHex()
	return nil
}

// GetProof returns an inclusion proof for the action at the given index,
// building the tree first if necessary.
func (b *Block) GetProof(actionIndex int) (*merkle.Proof, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.buildLocked(); err != nil {
		return nil, err
	}
	return b.tree.GetProof(actionIndex)
}

// VerifyAction checks that the candidate record is the action committed at
// the given index. Two checks are required and both must pass: the
// candidate's recomputed leaf hash must equal the proof's declared leaf
// hash, and the proof must verify against the block's root. Either check
// alone can be satisfied by a substituted payload or a proof lifted from a
// different index.
func (b *Block) VerifyAction(actionIndex int, candidate types.ActionRecord) (bool, error) {
	proof, err := b.GetProof(actionIndex)
	if err != nil {
		return false, err
	}

	candidateHash, err := merkle.HashRecord(candidate)
	if err != nil {
		return false, fmt.Errorf("invalid candidate record: %w", err)
	}

	if hex.EncodeToString(candidateHash[:]) != proof.LeafHash {
		return false, nil
	}
	return proof.Verify(), nil
}

// TreeDepth returns the depth of the committed tree.
func (b *Block) TreeDepth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tree == nil {
		return 0
	}
	return b.tree.Depth()
}

// ActionsCount returns the number of actions committed in this block.
// Unlike len(Actions) it survives payload eviction.
func (b *Block) ActionsCount() int {
	return b.actionsCount
}

// EvictActions drops the in-memory action payloads after they have been
// handed to a durable store. The merkle tree is retained so proofs and
// per-action verification keep working.
func (b *Block) EvictActions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Actions = nil
}

// ToLedgerEntry emits the compact chain projection of this block. The full
// action payloads are deliberately excluded: this projection is the only
// thing chained into the ledger, which is the entire storage economy of the
// design.
func (b *Block) ToLedgerEntry() *Summary {
	return &Summary{
		Type:           SummaryType,
		BlockNumber:    b.BlockNumber,
		MerkleRoot:     b.MerkleRoot,
		ActionsCount:   b.actionsCount,
		MetabolicState: b.MetabolicState,
		Timestamp:      b.Timestamp,
		RechargeAmount: b.RechargeAmount,
		TreeDepth:      b.TreeDepth(),
	}
}

// SummaryType marks a ledger payload as a merkle heartbeat block projection.
const SummaryType = "merkle_heartbeat_block"

// Summary is the compact, chainable projection of a block.
type Summary struct {
	Type           string               `json:"type"`
	BlockNumber    uint64               `json:"block_number"`
	MerkleRoot     string               `json:"merkle_root"`
	ActionsCount   int                  `json:"actions_count"`
	MetabolicState types.MetabolicState `json:"metabolic_state"`
	Timestamp      time.Time            `json:"timestamp"`
	RechargeAmount float64              `json:"recharge_amount"`
	TreeDepth      int                  `json:"tree_depth"`
}

// CanonicalEncode implements types.ActionRecord, so a summary can be
// appended to the hash chain directly.
func (s *Summary) CanonicalEncode() ([]byte, error) {
	return util.CanonicalJSON(s)
}
