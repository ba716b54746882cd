package oidc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// mergeAndMarshal merges the registered members and the extension
// members into a single JSON object.
// Registered members overwrite extension members with the same name.
func mergeAndMarshal(registered, extra map[string]any) ([]byte, error) {
	merged := make(map[string]any, len(registered)+len(extra))
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range registered {
		merged[k] = v
	}
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(merged); err != nil {
		return nil, fmt.Errorf("oidc merged members: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// decodeValue decodes an arbitrary JSON value keeping numbers as
// [json.Number], so they are encoded again exactly as received.
func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// CloneExtensions deep copies a bag of decoded JSON values.
func CloneExtensions(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = cloneValue(v)
	}
	return dst
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneExtensions(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
