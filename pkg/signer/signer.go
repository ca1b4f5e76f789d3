// Package signer defines the signing collaborator consumed by ledger
// appends. The ledger core hashes the returned signature bytes into each
// entry but never validates them; signature verification belongs to the
// surrounding system.
package signer

import "context"

// Signer supplies the (signer_identity, signature) pair committed into each
// ledger entry.
type Signer interface {
	// SignerIdentity returns the stable identity string recorded with each
	// signature.
	SignerIdentity() string

	// Sign signs the given message and returns opaque signature bytes.
	Sign(ctx context.Context, message []byte) ([]byte, error)

	// HardwareBacked reports whether signatures come from a hardware-held
	// key. Recorded as the entry's hw_signed flag.
	HardwareBacked() bool
}
