// Package heartbeat wires the audit pipeline together: authorized actions
// accumulate into the current batch, and at each scheduling tick the batch
// closes into a merkle block whose compact projection is signed and chained
// into the ledger while the full payloads go to the durable action store.
package heartbeat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/block"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/ledger"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/signer"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/types"
)

// SchedulerFunc is the external metabolic scheduler: it supplies the state
// tag and recharge amount recorded with each closed block.
type SchedulerFunc func() (types.MetabolicState, float64)

// Service buffers action records between ticks and flushes them as
// heartbeat merkle blocks. Appends are serialized internally; the ledger
// and block store still assume a single writer, which the service is.
type Service struct {
	logger   *zap.Logger
	chain    ledger.Ledger
	blocks   *block.Store
	signer   signer.Signer
	schedule SchedulerFunc
	interval time.Duration

	mu      sync.Mutex
	pending []types.ActionRecord
}

// NewService creates a heartbeat service. schedule may be nil, in which
// case blocks are tagged with the wake state and zero recharge.
func NewService(chain ledger.Ledger, blocks *block.Store, s signer.Signer, schedule SchedulerFunc, interval time.Duration, logger *zap.Logger) (*Service, error) {
	if chain == nil || blocks == nil || s == nil {
		return nil, fmt.Errorf("ledger, block store, and signer are all required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("heartbeat interval must be positive")
	}
	if schedule == nil {
		schedule = func() (types.MetabolicState, float64) {
			return types.MetabolicStateWake, 0
		}
	}
	return &Service{
		logger:   logger,
		chain:    chain,
		blocks:   blocks,
		signer:   s,
		schedule: schedule,
		interval: interval,
	}, nil
}

// Record buffers an authorized action into the current batch. The record
// must canonically encode; malformed records are rejected here, before
// anything is hashed or stored.
func (s *Service) Record(action types.ActionRecord) error {
	if action == nil {
		return fmt.Errorf("cannot record nil action")
	}
	if _, err := action.CanonicalEncode(); err != nil {
		return fmt.Errorf("invalid action record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, action)
	return nil
}

// Pending returns the number of buffered actions.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Flush closes the current batch into a block, appends its projection to
// the chain, and returns both. An empty batch is skipped: nil block, nil
// entry, no error.
func (s *Service) Flush(ctx context.Context) (*block.Block, *ledger.Entry, error) {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil, nil, nil
	}

	state, recharge := s.schedule()

	blk, err := s.blocks.AddBlock(batch, state, recharge)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to close heartbeat block: %w", err)
	}

	summary := blk.ToLedgerEntry()
	message, err := summary.CanonicalEncode()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode block summary: %w", err)
	}

	signature, err := s.signer.Sign(ctx, message)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sign block %d summary: %w", blk.BlockNumber, err)
	}

	entry, err := s.chain.Append(ctx, summary, s.signer.SignerIdentity(), signature, s.signer.HardwareBacked())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to chain block %d: %w", blk.BlockNumber, err)
	}

	s.logger.Sugar().Infow("Heartbeat block chained",
		"block_number", blk.BlockNumber,
		"actions", blk.ActionsCount(),
		"metabolic_state", blk.MetabolicState,
		"sequence", entry.Sequence,
		"entry_hash", entry.EntryHash,
	)
	return blk, entry, nil
}

// Run flushes on every tick until the context is cancelled, then performs a
// final flush so buffered actions are never dropped on shutdown.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, _, err := s.Flush(context.Background()); err != nil {
				s.logger.Sugar().Errorw("Final flush failed", "error", err)
				return err
			}
			return ctx.Err()
		case <-ticker.C:
			if _, _, err := s.Flush(ctx); err != nil {
				s.logger.Sugar().Errorw("Heartbeat flush failed", "error", err)
				return err
			}
		}
	}
}
