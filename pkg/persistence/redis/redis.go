package redis

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/persistence"
)

// Key layout in Redis
const (
	keyPrefixActions     = "audit:actions:"
	keySetBlocks         = "audit:blocks:index"
	keySchemaVersion     = "audit:metadata:schema_version"
	currentSchemaVersion = "v1"

	opTimeout = 5 * time.Second
)

// ActionStore is a Redis-backed action store suitable for cloud-native
// deployments where block payloads are shared between an appender and
// audit tooling. Listing uses an index set since Redis has no native
// ordered prefix iteration.
type ActionStore struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

var _ persistence.IActionStore = (*ActionStore)(nil)

// Config holds the connection settings for Redis.
type Config struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix prepended to all keys, for
	// multi-tenant setups. Empty means the default "audit:" namespace.
	KeyPrefix string
}

// NewActionStore creates a Redis-backed action store and verifies the
// connection with a ping before returning.
func NewActionStore(cfg *Config, logger *zap.Logger) (*ActionStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	s := &ActionStore{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := s.initSchema(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Sugar().Infow("Redis action store initialized", "address", cfg.Address, "db", cfg.DB)
	return s, nil
}

func (s *ActionStore) initSchema(ctx context.Context) error {
	key := s.key(keySchemaVersion)
	existing, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return s.client.Set(ctx, key, currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if existing != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
	}
	return nil
}

// SaveBlockActions implements IActionStore.
func (s *ActionStore) SaveBlockActions(blockNumber uint64, actions [][]byte) error {
	data, err := persistence.MarshalBlockActions(blockNumber, actions)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("action store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(keyPrefixActions+formatBlockNumber(blockNumber)), data, 0)
	pipe.SAdd(ctx, s.key(keySetBlocks), formatBlockNumber(blockNumber))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save block %d actions: %w", blockNumber, err)
	}
	return nil
}

// LoadBlockActions implements IActionStore.
func (s *ActionStore) LoadBlockActions(blockNumber uint64) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("action store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key(keyPrefixActions+formatBlockNumber(blockNumber))).Bytes()
	if err == redis.Nil {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load block %d actions: %w", blockNumber, err)
	}

	_, actions, err := persistence.UnmarshalBlockActions(data)
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// ListBlockNumbers implements IActionStore.
func (s *ActionStore) ListBlockNumbers() ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("action store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	members, err := s.client.SMembers(ctx, s.key(keySetBlocks)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}

	numbers := make([]uint64, 0, len(members))
	for _, m := range members {
		n, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			s.logger.Sugar().Warnw("Skipping malformed block index member", "member", m)
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	return numbers, nil
}

// DeleteBlockActions implements IActionStore.
func (s *ActionStore) DeleteBlockActions(blockNumber uint64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("action store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(keyPrefixActions+formatBlockNumber(blockNumber)))
	pipe.SRem(ctx, s.key(keySetBlocks), formatBlockNumber(blockNumber))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete block %d actions: %w", blockNumber, err)
	}
	return nil
}

// Close implements IActionStore.
func (s *ActionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.client.Close()
}

// HealthCheck implements IActionStore.
func (s *ActionStore) HealthCheck() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("action store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *ActionStore) key(base string) string {
	return s.keyPrefix + base
}

func formatBlockNumber(n uint64) string {
	return strconv.FormatUint(n, 10)
}
