package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRecordCanonicalEncode verifies map records encode deterministically
func TestRecordCanonicalEncode(t *testing.T) {
	r := Record{"type": "run_analysis", "actor": "alice"}

	encoded, err := r.CanonicalEncode()
	require.NoError(t, err)
	require.Equal(t, `{"actor":"alice","type":"run_analysis"}`, string(encoded))

	_, err = Record(nil).CanonicalEncode()
	require.Error(t, err)
}

// TestRawRecordPassThrough verifies pre-encoded records hash as-is
func TestRawRecordPassThrough(t *testing.T) {
	raw := RawRecord(`{"actor":"alice","type":"run_analysis"}`)

	encoded, err := raw.CanonicalEncode()
	require.NoError(t, err)
	require.Equal(t, []byte(raw), encoded)
}

// TestRawRecordRejectsInvalid verifies empty and malformed bytes are refused
func TestRawRecordRejectsInvalid(t *testing.T) {
	_, err := RawRecord(nil).CanonicalEncode()
	require.Error(t, err)

	_, err = RawRecord("{not json").CanonicalEncode()
	require.Error(t, err)
}
