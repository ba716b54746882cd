package idp

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Record is the stored definition of one dynamically configured identity provider.
//
// Properties carry the provider specific settings; which ones are understood
// depends on the [ProviderKind] bound to Type. Records handed out by the
// [Cache] are copies and may be modified by the caller.
type Record struct {
	Scheme      string         `json:"scheme" yaml:"scheme"`
	Type        string         `json:"type" yaml:"type"`
	DisplayName string         `json:"display_name,omitempty" yaml:"display_name"`
	Enabled     bool           `json:"enabled" yaml:"enabled"`
	Properties  map[string]any `json:"properties,omitempty" yaml:"properties"`
}

func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Properties = cloneProperties(r.Properties)
	return &clone
}

func cloneProperties(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		switch t := v.(type) {
		case map[string]any:
			dst[k] = cloneProperties(t)
		case []any:
			dst[k] = slices.Clone(t)
		case []string:
			dst[k] = slices.Clone(t)
		case map[string]string:
			dst[k] = maps.Clone(t)
		default:
			dst[k] = v
		}
	}
	return dst
}

// String returns the property key as string.
// ok is false if the property is absent or empty.
func (r *Record) String(key string) (value string, ok bool, err error) {
	raw, present := r.Properties[key]
	if !present || raw == nil {
		return "", false, nil
	}
	switch t := raw.(type) {
	case string:
		return t, t != "", nil
	case fmt.Stringer:
		s := t.String()
		return s, s != "", nil
	default:
		return "", false, fmt.Errorf("property %q: expected string, got %T", key, raw)
	}
}

// Bool returns the property key as bool, accepting booleans and their string forms.
// ok is false if the property is absent.
func (r *Record) Bool(key string) (value bool, ok bool, err error) {
	raw, present := r.Properties[key]
	if !present || raw == nil {
		return false, false, nil
	}
	switch t := raw.(type) {
	case bool:
		return t, true, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, false, fmt.Errorf("property %q: %w", key, err)
		}
		return b, true, nil
	default:
		return false, false, fmt.Errorf("property %q: expected bool, got %T", key, raw)
	}
}

// Strings returns the property key as list, accepting a list of strings
// or a single space-delimited string.
func (r *Record) Strings(key string) (value []string, ok bool, err error) {
	raw, present := r.Properties[key]
	if !present || raw == nil {
		return nil, false, nil
	}
	switch t := raw.(type) {
	case string:
		fields := strings.Fields(t)
		return fields, len(fields) > 0, nil
	case []string:
		return slices.Clone(t), len(t) > 0, nil
	case []any:
		out := make([]string, 0, len(t))
		for i, v := range t {
			s, isString := v.(string)
			if !isString {
				return nil, false, fmt.Errorf("property %q[%d]: expected string, got %T", key, i, v)
			}
			out = append(out, s)
		}
		return out, len(out) > 0, nil
	default:
		return nil, false, fmt.Errorf("property %q: expected list of strings, got %T", key, raw)
	}
}
