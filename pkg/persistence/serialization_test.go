package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestBlockActionsRoundTrip verifies block payloads survive serialization
func TestBlockActionsRoundTrip(t *testing.T) {
	actions := [][]byte{
		[]byte(`{"actor":"alice","type":"run_analysis"}`),
		[]byte(`{"actor":"bob","type":"review_pr"}`),
	}

	data, err := MarshalBlockActions(12, actions)
	require.NoError(t, err)

	blockNumber, loaded, err := UnmarshalBlockActions(data)
	require.NoError(t, err)
	require.Equal(t, uint64(12), blockNumber)
	require.Equal(t, actions, loaded)
}

// TestMarshalNilActions verifies nil batches are rejected
func TestMarshalNilActions(t *testing.T) {
	_, err := MarshalBlockActions(0, nil)
	require.Error(t, err)
}

// TestUnmarshalInvalid verifies malformed payloads are rejected
func TestUnmarshalInvalid(t *testing.T) {
	_, _, err := UnmarshalBlockActions(nil)
	require.Error(t, err)

	_, _, err = UnmarshalBlockActions([]byte("not json"))
	require.Error(t, err)
}
