package util

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CanonicalJSON encodes v as deterministic JSON: object keys sorted,
// compact separators, no HTML escaping. Logically equal values always
// produce identical bytes, which is required for reproducible hashing.
//
// The value is first normalized through a generic decode so that struct
// field order never leaks into the output. Numbers are preserved verbatim
// via json.Number rather than being coerced through float64.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var normalized any
	if err := dec.Decode(&normalized); err != nil {
		return nil, fmt.Errorf("failed to normalize value: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return nil, fmt.Errorf("failed to encode canonical form: %w", err)
	}

	// Encoder appends a trailing newline; strip it.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
