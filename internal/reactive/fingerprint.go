package reactive

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Fingerprint returns the canonical JSON encoding of validated params, used
// as the deduplication key component. Object keys are emitted sorted and
// absent/null params collapse to "{}", so {"a":1,"b":2} and {"b":2,"a":1}
// fingerprint identically.
func Fingerprint(params any) (string, error) {
	if params == nil {
		return "{}", nil
	}
	if raw, ok := params.(json.RawMessage); ok {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			return "{}", nil
		}
	}

	b, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("fingerprint params: %w", err)
	}
	if bytes.Equal(b, []byte("null")) {
		return "{}", nil
	}

	// Round-trip through any so maps re-marshal with sorted keys regardless
	// of the original encoding or struct field order.
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return "", fmt.Errorf("fingerprint params: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint params: %w", err)
	}
	return string(out), nil
}
