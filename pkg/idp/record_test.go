package idp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Clone(t *testing.T) {
	r := &Record{
		Scheme:  "tenant-a",
		Type:    "oidc",
		Enabled: true,
		Properties: map[string]any{
			"authority": "https://login.example.com",
			"nested":    map[string]any{"a": "b"},
			"list":      []any{"x"},
		},
	}
	c := r.Clone()
	assert.Equal(t, r, c)

	c.Properties["authority"] = "https://evil.example.com"
	c.Properties["nested"].(map[string]any)["a"] = "changed"
	c.Properties["list"].([]any)[0] = "changed"
	assert.Equal(t, "https://login.example.com", r.Properties["authority"])
	assert.Equal(t, "b", r.Properties["nested"].(map[string]any)["a"])
	assert.Equal(t, "x", r.Properties["list"].([]any)[0])

	assert.Nil(t, (*Record)(nil).Clone())
}

func TestRecord_Getters(t *testing.T) {
	r := &Record{Properties: map[string]any{
		"authority": "https://login.example.com",
		"empty":     "",
		"number":    42,
		"pkce":      false,
		"pkce_str":  "true",
		"bad_bool":  "maybe",
		"scope":     "openid  profile",
		"scopes":    []any{"openid", "email"},
		"bad_list":  []any{"openid", 1},
		"nil":       nil,
	}}

	s, ok, err := r.String("authority")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://login.example.com", s)

	_, ok, err = r.String("empty")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = r.String("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = r.String("number")
	assert.Error(t, err)

	b, ok, err := r.Bool("pkce")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, b)

	b, ok, err = r.Bool("pkce_str")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, b)

	_, _, err = r.Bool("bad_bool")
	assert.Error(t, err)

	_, ok, err = r.Bool("nil")
	require.NoError(t, err)
	assert.False(t, ok)

	l, ok, err := r.Strings("scope")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"openid", "profile"}, l)

	l, _, err = r.Strings("scopes")
	require.NoError(t, err)
	assert.Equal(t, []string{"openid", "email"}, l)

	_, _, err = r.Strings("bad_list")
	assert.Error(t, err)
}
