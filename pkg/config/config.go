package config

import (
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for audit ledger configuration
const (
	EnvAuditPersistenceType = "AUDIT_PERSISTENCE_TYPE"
	EnvAuditDataDir         = "AUDIT_DATA_DIR"
	EnvAuditRedisAddress    = "AUDIT_REDIS_ADDRESS"
	EnvAuditRedisPassword   = "AUDIT_REDIS_PASSWORD"
	EnvAuditRedisDB         = "AUDIT_REDIS_DB"
	EnvAuditInterval        = "AUDIT_HEARTBEAT_INTERVAL"
	EnvAuditSignerType      = "AUDIT_SIGNER_TYPE"
	EnvAuditSignerName      = "AUDIT_SIGNER_NAME"
	EnvAuditKMSKeyID        = "AUDIT_KMS_KEY_ID"
	EnvAuditAWSRegion       = "AUDIT_AWS_REGION"
	EnvAuditVerbose         = "AUDIT_VERBOSE"
)

// PersistenceType selects the durable backend for the chain and the action
// store.
type PersistenceType string

const (
	PersistenceTypeMemory PersistenceType = "memory"
	PersistenceTypeBadger PersistenceType = "badger"
	PersistenceTypeRedis  PersistenceType = "redis"
)

func (p PersistenceType) String() string {
	return string(p)
}

// SignerType selects the signing collaborator.
type SignerType string

const (
	SignerTypeLocal  SignerType = "local"
	SignerTypeAWSKMS SignerType = "aws-kms"
)

// AuditConfig is the full configuration of the audit ledger process.
type AuditConfig struct {
	// PersistenceType selects memory, badger, or redis storage.
	PersistenceType PersistenceType `json:"persistenceType"`

	// DataDir is the on-disk root for badger storage. The chain and the
	// action store live in separate databases under this directory.
	DataDir string `json:"dataDir"`

	// Redis connection settings, used when PersistenceType is redis.
	RedisAddress  string `json:"redisAddress"`
	RedisPassword string `json:"-"`
	RedisDB       int    `json:"redisDB"`

	// HeartbeatInterval is how often the current action batch is closed
	// into a merkle block and chained.
	HeartbeatInterval time.Duration `json:"heartbeatInterval"`

	// Signer selection.
	SignerType SignerType `json:"signerType"`
	SignerName string     `json:"signerName"`
	KMSKeyID   string     `json:"kmsKeyId"`
	AWSRegion  string     `json:"awsRegion"`

	// Verbose enables debug logging.
	Verbose bool `json:"verbose"`
}

// Validate checks the configuration, aggregating all problems.
func (c *AuditConfig) Validate() error {
	var allErrors field.ErrorList

	switch c.PersistenceType {
	case PersistenceTypeMemory:
	case PersistenceTypeBadger:
		if c.DataDir == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("dataDir"), "dataDir is required for badger persistence"))
		}
	case PersistenceTypeRedis:
		if c.RedisAddress == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("redisAddress"), "redisAddress is required for redis persistence"))
		}
		if c.RedisDB < 0 || c.RedisDB > 15 {
			allErrors = append(allErrors, field.Invalid(field.NewPath("redisDB"), c.RedisDB, "redis database number must be in [0, 15]"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("persistenceType"), c.PersistenceType, []string{
			string(PersistenceTypeMemory), string(PersistenceTypeBadger), string(PersistenceTypeRedis),
		}))
	}

	switch c.SignerType {
	case SignerTypeLocal:
	case SignerTypeAWSKMS:
		if c.KMSKeyID == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("kmsKeyId"), "kmsKeyId is required for the aws-kms signer"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("signerType"), c.SignerType, []string{
			string(SignerTypeLocal), string(SignerTypeAWSKMS),
		}))
	}

	if c.HeartbeatInterval <= 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("heartbeatInterval"), c.HeartbeatInterval.String(), "heartbeat interval must be positive"))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// GetSupportedPersistenceTypesString returns the persistence backends for CLI help.
func GetSupportedPersistenceTypesString() string {
	return fmt.Sprintf("%s, %s, %s", PersistenceTypeMemory, PersistenceTypeBadger, PersistenceTypeRedis)
}
