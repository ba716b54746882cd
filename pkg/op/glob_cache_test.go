package op

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileGlob(t *testing.T) {
	cases := []struct {
		glob        string
		uri         string
		expectError bool
		expectMatch bool
	}{
		{
			glob:        "http://example.com/foo/*",
			uri:         "http://example.com/foo/index.html",
			expectMatch: true,
		},
		{
			glob:        "http://example.com/foo/*",
			uri:         "http://example.com/index.html",
			expectMatch: false,
		},
		{
			glob:        "https://*.example.com/cb",
			uri:         "https://app.example.com/cb",
			expectMatch: true,
		},
		{
			glob:        "https://*.example.com/cb",
			uri:         "https://evil.com/x.example.com/cb",
			expectMatch: false,
		},
		{
			glob:        "http://localhost:*/callback",
			uri:         "http://localhost:8080/callback",
			expectMatch: true,
		},
		{
			glob:        "http://example.com/foo/[xl",
			expectError: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.glob+" "+tc.uri, func(t *testing.T) {
			compiled, err := CompileGlob(tc.glob)
			if tc.expectError {
				assert.Error(t, err, "compile")
				return
			}
			require.NoError(t, err, "compile")
			assert.Equal(t, tc.expectMatch, compiled.Match(tc.uri), tc.uri)
		})
	}
}

func Test_redirectAllowList(t *testing.T) {
	empty, err := compileRedirectAllowList(nil)
	require.NoError(t, err)
	assert.True(t, empty.allows("https://anything.example/cb"))

	list, err := compileRedirectAllowList([]string{"https://*.example.com/*", "http://localhost:*/cb"})
	require.NoError(t, err)
	assert.True(t, list.allows("https://app.example.com/cb"))
	assert.True(t, list.allows("http://localhost:3000/cb"))
	assert.False(t, list.allows("https://example.org/cb"))

	_, err = compileRedirectAllowList([]string{"https://[x"})
	assert.Error(t, err)
}
