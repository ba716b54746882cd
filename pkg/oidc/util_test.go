package oidc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jsonErrorTest struct{}

func (jsonErrorTest) MarshalJSON() ([]byte, error) {
	return nil, assert.AnError
}

func Test_mergeAndMarshal(t *testing.T) {
	tests := []struct {
		name       string
		registered map[string]any
		extra      map[string]any
		want       string
		wantErr    bool
	}{
		{
			name:       "encoder error",
			registered: map[string]any{"foo": jsonErrorTest{}},
			wantErr:    true,
		},
		{
			name:       "no extensions",
			registered: map[string]any{"foo": "bar"},
			want:       `{"foo":"bar"}`,
		},
		{
			name:       "with extensions",
			registered: map[string]any{"foo": "bar"},
			extra:      map[string]any{"software_id": "abc", "logo_uri": "https://example.com/logo.png?a=b&c=d"},
			want:       `{"foo":"bar","logo_uri":"https://example.com/logo.png?a=b&c=d","software_id":"abc"}`,
		},
		{
			name:       "registered wins",
			registered: map[string]any{"scope": "openid"},
			extra:      map[string]any{"scope": "admin"},
			want:       `{"scope":"openid"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mergeAndMarshal(tt.registered, tt.extra)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
			assert.NotContains(t, string(got), `\u0026`)
		})
	}
}

func Test_decodeValue(t *testing.T) {
	v, err := decodeValue(json.RawMessage(`{"n":12345678901234567890,"f":1.50,"l":[1,"a",null]}`))
	require.NoError(t, err)
	m := v.(map[string]any)
	assert.Equal(t, json.Number("12345678901234567890"), m["n"])
	assert.Equal(t, json.Number("1.50"), m["f"])
	assert.Equal(t, []any{json.Number("1"), "a", nil}, m["l"])

	_, err = decodeValue(json.RawMessage(`{`))
	assert.Error(t, err)
}

func TestCloneExtensions(t *testing.T) {
	assert.Nil(t, CloneExtensions(nil))

	src := map[string]any{
		"nested": map[string]any{"a": "b"},
		"list":   []any{"x", map[string]any{"y": "z"}},
		"plain":  json.Number("1"),
	}
	got := CloneExtensions(src)
	assert.Equal(t, src, got)

	got["nested"].(map[string]any)["a"] = "changed"
	got["list"].([]any)[0] = "changed"
	assert.Equal(t, "b", src["nested"].(map[string]any)["a"])
	assert.Equal(t, "x", src["list"].([]any)[0])
}

func Test_isNull(t *testing.T) {
	assert.True(t, isNull(json.RawMessage(`null`)))
	assert.True(t, isNull(json.RawMessage(` null `)))
	assert.True(t, isNull(nil))
	assert.False(t, isNull(json.RawMessage(`"null"`)))
	assert.False(t, isNull(json.RawMessage(`0`)))
}
