package local

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"

	"github.com/hardbound-labs/heartbeat-ledger-go/pkg/signer"
)

// Signer is an in-process ed25519 signer for development and testing. Keys
// live in process memory; HardwareBacked is always false.
type Signer struct {
	identity   string
	publicKey  ed25519.PublicKey
	privateKey ed25519.PrivateKey
}

var _ signer.Signer = (*Signer)(nil)

// NewSigner generates a fresh ed25519 keypair. The identity is tagged with
// a UUID so concurrently created local signers never collide.
func NewSigner(name string) (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}
	return &Signer{
		identity:   fmt.Sprintf("local:%s:%s", name, uuid.NewString()),
		publicKey:  pub,
		privateKey: priv,
	}, nil
}

// SignerIdentity implements signer.Signer.
func (s *Signer) SignerIdentity() string {
	return s.identity
}

// Sign implements signer.Signer.
func (s *Signer) Sign(_ context.Context, message []byte) ([]byte, error) {
	return ed25519.Sign(s.privateKey, message), nil
}

// HardwareBacked implements signer.Signer.
func (s *Signer) HardwareBacked() bool {
	return false
}

// PublicKey returns the verifying key for out-of-band signature checks.
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.publicKey
}
