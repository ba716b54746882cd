package op

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssuerInterceptor(t *testing.T) {
	tests := []struct {
		name              string
		issuerFromRequest IssuerFromRequest
		issuer            string
	}{
		{
			"empty",
			func(r *http.Request) string {
				return ""
			},
			"",
		},
		{
			"static",
			func(r *http.Request) string {
				return "static"
			},
			"static",
		},
		{
			"host",
			func(r *http.Request) string {
				return r.Host
			},
			"issuer.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := NewIssuerInterceptor(tt.issuerFromRequest)
			var called bool
			next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				called = true
				assert.Equal(t, tt.issuer, IssuerFromContext(r.Context()))
			})
			req := httptest.NewRequest("", "https://issuer.com", nil)
			i.Handler(next).ServeHTTP(nil, req)
			assert.True(t, called)
		})
	}
}

func TestStaticIssuer(t *testing.T) {
	tests := []struct {
		name          string
		issuer        string
		allowInsecure bool
		want          string
		wantErr       bool
	}{
		{"https", "https://auth.example.com/", false, "https://auth.example.com", false},
		{"path", "https://example.com/auth", false, "https://example.com/auth", false},
		{"http not allowed", "http://localhost:9998", false, "", true},
		{"http allowed", "http://localhost:9998", true, "http://localhost:9998", false},
		{"relative", "/auth", true, "", true},
		{"query", "https://auth.example.com?tenant=a", false, "", true},
		{"fragment", "https://auth.example.com#a", false, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StaticIssuer(tt.issuer, tt.allowInsecure)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidIssuer)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got(httptest.NewRequest("", "/", nil)))
		})
	}
}
