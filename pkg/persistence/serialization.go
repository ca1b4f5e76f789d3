package persistence

import (
	"encoding/json"
	"fmt"
)

// blockPayload is the stored form of one block's actions.
type blockPayload struct {
	BlockNumber uint64   `json:"block_number"`
	Actions     [][]byte `json:"actions"`
}

// MarshalBlockActions serializes a block's action encodings for storage.
func MarshalBlockActions(blockNumber uint64, actions [][]byte) ([]byte, error) {
	if actions == nil {
		return nil, fmt.Errorf("cannot marshal nil actions")
	}
	data, err := json.Marshal(&blockPayload{BlockNumber: blockNumber, Actions: actions})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal block %d actions: %w", blockNumber, err)
	}
	return data, nil
}

// UnmarshalBlockActions deserializes a stored block payload.
func UnmarshalBlockActions(data []byte) (uint64, [][]byte, error) {
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("cannot unmarshal empty data")
	}
	var payload blockPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, nil, fmt.Errorf("failed to unmarshal block payload: %w", err)
	}
	return payload.BlockNumber, payload.Actions, nil
}
