package util

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func proxyFor(t *testing.T, fn func(*http.Request) (*url.URL, error), target string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	u, err := fn(req)
	require.NoError(t, err)
	if u == nil {
		return ""
	}
	return u.String()
}

func TestNewProxyFunc(t *testing.T) {
	fn := NewProxyFunc("http://plain:3128", "http://secure:3128", "localhost, .internal.example")

	assert.Equal(t, "http://secure:3128", proxyFor(t, fn, "https://api.openai.com/v1"))
	assert.Equal(t, "http://plain:3128", proxyFor(t, fn, "http://api.openai.com/v1"))
	assert.Equal(t, "", proxyFor(t, fn, "http://localhost:8080/v1"))
	assert.Equal(t, "", proxyFor(t, fn, "https://llm.internal.example/v1"))
	assert.Equal(t, "http://secure:3128", proxyFor(t, fn, "https://internal.example.com/v1"))

	httpOnly := NewProxyFunc("http://plain:3128", "", "")
	assert.Equal(t, "http://plain:3128", proxyFor(t, httpOnly, "https://api.openai.com/v1"))
}
