package awskms

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/signer"
)

// Signer signs ledger entries with an asymmetric key held in AWS KMS.
// The key never leaves the HSM, so entries signed this way are recorded
// with hw_signed=true.
type Signer struct {
	logger    *zap.Logger
	kmsClient *kms.Client
	keyID     string
	algorithm kmstypes.SigningAlgorithmSpec
}

var _ signer.Signer = (*Signer)(nil)

// LoadAWSConfig loads the default AWS configuration, optionally pinned to a
// region.
func LoadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	if region != "" {
		return awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	}
	return awsconfig.LoadDefaultConfig(ctx)
}

// NewSigner creates a KMS-backed signer for the given key. The key must be
// an asymmetric SIGN_VERIFY key supporting ECDSA over P-256.
func NewSigner(awsCfg aws.Config, keyID string, logger *zap.Logger) (*Signer, error) {
	if keyID == "" {
		return nil, fmt.Errorf("kms key id cannot be empty")
	}
	return &Signer{
		logger:    logger,
		kmsClient: kms.NewFromConfig(awsCfg),
		keyID:     keyID,
		algorithm: kmstypes.SigningAlgorithmSpecEcdsaSha256,
	}, nil
}

// SignerIdentity implements signer.Signer.
func (s *Signer) SignerIdentity() string {
	return fmt.Sprintf("aws-kms:%s", s.keyID)
}

// Sign implements signer.Signer. The message is digested locally and only
// the digest crosses the wire to KMS.
func (s *Signer) Sign(ctx context.Context, message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)

	out, err := s.kmsClient.Sign(ctx, &kms.SignInput{
		KeyId:            aws.String(s.keyID),
		Message:          digest[:],
		MessageType:      kmstypes.MessageTypeDigest,
		SigningAlgorithm: s.algorithm,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to sign with KMS key %s", s.keyID)
	}

	return out.Signature, nil
}

// HardwareBacked implements signer.Signer.
func (s *Signer) HardwareBacked() bool {
	return true
}
