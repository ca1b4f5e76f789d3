package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/block"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/config"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/heartbeat"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/ledger"
	badgerledger "github.com/hardbound-labs/heartbeat-ledger-go/pkg/ledger/badger"
	memoryledger "github.com/hardbound-labs/heartbeat-ledger-go/pkg/ledger/memory"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/logger"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/persistence"
	badgerstore "github.com/hardbound-labs/heartbeat-ledger-go/pkg/persistence/badger"
	memorystore "github.com/hardbound-labs/heartbeat-ledger-go/pkg/persistence/memory"
	redisstore "github.com/hardbound-labs/heartbeat-ledger-go/pkg/persistence/redis"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/signer"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/signer/awskms"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/signer/local"
	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/types"
)

func main() {
	app := &cli.App{
		Name:  "ledger-audit",
		Usage: "Tamper-evident audit ledger with merkle heartbeat blocks",
		Description: `Records authorized actions into merkle-aggregated heartbeat blocks whose
compact projections are signed and committed to an append-only hash chain.

The chain and the bulk action payloads live in separate stores; the verify
command catches tampering in either one.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "persistence",
				Usage:   fmt.Sprintf("Persistence backend: %s", config.GetSupportedPersistenceTypesString()),
				Value:   string(config.PersistenceTypeMemory),
				EnvVars: []string{config.EnvAuditPersistenceType},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "On-disk root for badger storage",
				EnvVars: []string{config.EnvAuditDataDir},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis address (host:port) for redis persistence",
				EnvVars: []string{config.EnvAuditRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvAuditRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				EnvVars: []string{config.EnvAuditRedisDB},
			},
			&cli.DurationFlag{
				Name:    "interval",
				Usage:   "Heartbeat interval between block closings",
				Value:   30 * time.Second,
				EnvVars: []string{config.EnvAuditInterval},
			},
			&cli.StringFlag{
				Name:    "signer",
				Usage:   "Signer type: local or aws-kms",
				Value:   string(config.SignerTypeLocal),
				EnvVars: []string{config.EnvAuditSignerType},
			},
			&cli.StringFlag{
				Name:    "signer-name",
				Usage:   "Identity name for the local signer",
				Value:   "ledger-audit",
				EnvVars: []string{config.EnvAuditSignerName},
			},
			&cli.StringFlag{
				Name:    "kms-key-id",
				Usage:   "AWS KMS key id or ARN for the aws-kms signer",
				EnvVars: []string{config.EnvAuditKMSKeyID},
			},
			&cli.StringFlag{
				Name:    "aws-region",
				Usage:   "AWS region for the aws-kms signer",
				EnvVars: []string{config.EnvAuditAWSRegion},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable debug logging",
				EnvVars: []string{config.EnvAuditVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "simulate",
				Usage: "Record synthetic actions through heartbeat blocks, then verify everything",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "blocks",
						Usage: "Number of heartbeat blocks to produce",
						Value: 4,
					},
					&cli.IntFlag{
						Name:  "actions-per-block",
						Usage: "Actions recorded in each block",
						Value: 5,
					},
				},
				Action: runSimulate,
			},
			{
				Name:   "verify",
				Usage:  "Verify the hash chain and every chained block against stored actions",
				Action: runVerify,
			},
			{
				Name:  "proof",
				Usage: "Emit a merkle inclusion proof for one action as JSON",
				Flags: []cli.Flag{
					&cli.Uint64Flag{
						Name:     "block",
						Usage:    "Block number the action belongs to",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "index",
						Usage:    "Action index within the block",
						Required: true,
					},
				},
				Action: runProof,
			},
			{
				Name:   "stats",
				Usage:  "Print storage telemetry for the chained blocks",
				Action: runStats,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func parseConfig(c *cli.Context) (*config.AuditConfig, error) {
	cfg := &config.AuditConfig{
		PersistenceType:   config.PersistenceType(c.String("persistence")),
		DataDir:           c.String("data-dir"),
		RedisAddress:      c.String("redis-address"),
		RedisPassword:     c.String("redis-password"),
		RedisDB:           c.Int("redis-db"),
		HeartbeatInterval: c.Duration("interval"),
		SignerType:        config.SignerType(c.String("signer")),
		SignerName:        c.String("signer-name"),
		KMSKeyID:          c.String("kms-key-id"),
		AWSRegion:         c.String("aws-region"),
		Verbose:           c.Bool("verbose"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// openStores builds the chain ledger and the action store for the selected
// persistence backend. With redis persistence the bulk payloads go to redis
// while the chain itself stays in badger when a data dir is configured.
func openStores(cfg *config.AuditConfig, zl *zap.Logger) (ledger.Ledger, persistence.IActionStore, error) {
	switch cfg.PersistenceType {
	case config.PersistenceTypeMemory:
		return memoryledger.NewLedger(), memorystore.NewActionStore(), nil

	case config.PersistenceTypeBadger:
		chain, err := badgerledger.NewLedger(cfg.DataDir+"/chain", zl)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open badger chain: %w", err)
		}
		actions, err := badgerstore.NewActionStore(cfg.DataDir+"/actions", zl)
		if err != nil {
			_ = chain.Close()
			return nil, nil, fmt.Errorf("failed to open badger action store: %w", err)
		}
		return chain, actions, nil

	case config.PersistenceTypeRedis:
		actions, err := redisstore.NewActionStore(&redisstore.Config{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, zl)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		if cfg.DataDir != "" {
			chain, err := badgerledger.NewLedger(cfg.DataDir+"/chain", zl)
			if err != nil {
				_ = actions.Close()
				return nil, nil, fmt.Errorf("failed to open badger chain: %w", err)
			}
			return chain, actions, nil
		}
		zl.Warn("No data dir configured, chain is in-memory and will not survive restarts")
		return memoryledger.NewLedger(), actions, nil

	default:
		return nil, nil, fmt.Errorf("unsupported persistence type: %s", cfg.PersistenceType)
	}
}

func buildSigner(ctx context.Context, cfg *config.AuditConfig, zl *zap.Logger) (signer.Signer, error) {
	switch cfg.SignerType {
	case config.SignerTypeLocal:
		return local.NewSigner(cfg.SignerName)
	case config.SignerTypeAWSKMS:
		awsCfg, err := awskms.LoadAWSConfig(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return awskms.NewSigner(awsCfg, cfg.KMSKeyID, zl)
	default:
		return nil, fmt.Errorf("unsupported signer type: %s", cfg.SignerType)
	}
}

type environment struct {
	cfg     *config.AuditConfig
	logger  *zap.Logger
	chain   ledger.Ledger
	actions persistence.IActionStore
}

func setup(c *cli.Context) (*environment, error) {
	cfg, err := parseConfig(c)
	if err != nil {
		return nil, err
	}
	zl, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Verbose})
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	chain, actions, err := openStores(cfg, zl)
	if err != nil {
		return nil, err
	}
	return &environment{cfg: cfg, logger: zl, chain: chain, actions: actions}, nil
}

func (e *environment) close() {
	if err := e.chain.Close(); err != nil {
		e.logger.Sugar().Warnw("Failed to close chain", "error", err)
	}
	if err := e.actions.Close(); err != nil {
		e.logger.Sugar().Warnw("Failed to close action store", "error", err)
	}
}

func runSimulate(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.close()

	ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sgn, err := buildSigner(ctx, env.cfg, env.logger)
	if err != nil {
		return err
	}

	states := []types.MetabolicState{
		types.MetabolicStateWake,
		types.MetabolicStateFocus,
		types.MetabolicStateRest,
		types.MetabolicStateDream,
	}
	tick := 0
	schedule := func() (types.MetabolicState, float64) {
		state := states[tick%len(states)]
		tick++
		return state, float64(tick) * 0.5
	}

	blocks := block.NewStore(env.actions, env.logger)
	svc, err := heartbeat.NewService(env.chain, blocks, sgn, schedule, env.cfg.HeartbeatInterval, env.logger)
	if err != nil {
		return err
	}

	numBlocks := c.Int("blocks")
	perBlock := c.Int("actions-per-block")

	for b := 0; b < numBlocks; b++ {
		for a := 0; a < perBlock; a++ {
			action := types.Record{
				"type":      "simulated_action",
				"actor":     fmt.Sprintf("agent-%d", a%3),
				"action_id": uuid.NewString(),
				"batch":     b,
			}
			if err := svc.Record(action); err != nil {
				return fmt.Errorf("failed to record action: %w", err)
			}
		}
		blk, entry, err := svc.Flush(ctx)
		if err != nil {
			return err
		}
		if blk == nil {
			continue
		}
		fmt.Printf("Block %d chained: %d actions, root %s, sequence %d\n",
			blk.BlockNumber, blk.ActionsCount(), blk.MerkleRoot, entry.Sequence)
	}

	result, err := env.chain.Verify(ctx)
	if err != nil {
		return fmt.Errorf("chain verification failed to run: %w", err)
	}
	fmt.Printf("\nChain verification: valid=%t entries=%d\n", result.Valid, result.Entries)

	for b := uint64(0); b < uint64(blocks.Len()); b++ {
		if err := blocks.VerifyBlock(b); err != nil {
			return fmt.Errorf("block %d verification failed: %w", b, err)
		}
	}
	fmt.Printf("All %d blocks verified against stored actions\n", blocks.Len())

	printStats(blocks.StorageStats())
	return nil
}

func runVerify(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.close()

	result, err := env.chain.Verify(c.Context)
	if err != nil {
		return fmt.Errorf("chain verification failed to run: %w", err)
	}

	fmt.Printf("Chain: %d entries\n", result.Entries)
	if result.Valid {
		fmt.Println("Chain integrity: OK")
	} else {
		fmt.Printf("Chain integrity: BROKEN (%d breaks)\n", len(result.Breaks))
		for _, b := range result.Breaks {
			fmt.Printf("  sequence %d: %s\n", b.Sequence, b.Reason)
		}
	}

	if env.cfg.PersistenceType == config.PersistenceTypeMemory {
		fmt.Println("Memory persistence holds no durable actions, skipping block checks")
		if !result.Valid {
			return fmt.Errorf("chain integrity broken")
		}
		return nil
	}

	summaries, err := loadSummaries(c.Context, env.chain)
	if err != nil {
		return err
	}

	broken := 0
	for _, s := range summaries {
		if err := block.VerifyChainedBlock(s, env.actions); err != nil {
			broken++
			fmt.Printf("Block %d: FAILED: %v\n", s.BlockNumber, err)
		}
	}
	if broken == 0 {
		fmt.Printf("All %d blocks verified against stored actions\n", len(summaries))
	}

	if !result.Valid || broken > 0 {
		return fmt.Errorf("integrity verification failed")
	}
	return nil
}

func runProof(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.close()

	blockNumber := c.Uint64("block")
	actionIndex := c.Int("index")

	summaries, err := loadSummaries(c.Context, env.chain)
	if err != nil {
		return err
	}

	var target *block.Summary
	for _, s := range summaries {
		if s.BlockNumber == blockNumber {
			target = s
			break
		}
	}
	if target == nil {
		return fmt.Errorf("block %d is not on the chain", blockNumber)
	}

	proof, err := block.ProofFromStore(target, actionIndex, env.actions)
	if err != nil {
		return err
	}
	if !proof.Verify() {
		return fmt.Errorf("generated proof for block %d index %d does not verify", blockNumber, actionIndex)
	}

	encoded, err := json.MarshalIndent(proof, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode proof: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}

func runStats(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer env.close()

	summaries, err := loadSummaries(c.Context, env.chain)
	if err != nil {
		return err
	}
	printStats(block.StatsFromSummaries(summaries))
	return nil
}

func loadSummaries(ctx context.Context, chain ledger.Ledger) ([]*block.Summary, error) {
	length, err := chain.Len(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain length: %w", err)
	}

	summaries := make([]*block.Summary, 0, length)
	for seq := uint64(0); seq < uint64(length); seq++ {
		entry, err := chain.Get(ctx, seq)
		if err != nil {
			return nil, fmt.Errorf("failed to read chain entry %d: %w", seq, err)
		}
		summary, err := block.SummaryFromEntry(entry)
		if err != nil {
			// Non-block entries are allowed on the chain; skip them.
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func printStats(stats *block.StorageStats) {
	fmt.Printf("\nStorage stats:\n")
	fmt.Printf("  Total blocks:        %d\n", stats.TotalBlocks)
	fmt.Printf("  Total actions:       %d\n", stats.TotalActions)
	fmt.Printf("  Ledger entries:      %d\n", stats.LedgerEntries)
	fmt.Printf("  Flat-ledger entries: %d\n", stats.FlatLedgerEntries)
	fmt.Printf("  Reduction factor:    %.2fx\n", stats.LedgerReductionFactor)
	fmt.Printf("  Avg actions/block:   %.2f\n", stats.AvgActionsPerBlock)
}
