package middleware

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yanizio/vitrine/internal/site"
)

type lookup map[string]bool

func (l lookup) Resolve(_ context.Context, host string) (*site.Config, error) {
	if l[host] {
		return &site.Config{ID: host}, nil
	}
	return nil, site.ErrNotFound
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

func TestForceHTTPS(t *testing.T) {
	h := ForceHTTPS(lookup{"imobexemplo.vitrine.test": true}, ok)

	cases := []struct {
		name   string
		host   string
		tls    bool
		proto  string
		status int
	}{
		{"known plain", "imobexemplo.vitrine.test:80", false, "", http.StatusPermanentRedirect},
		{"unknown plain", "outra.vitrine.test", false, "", http.StatusOK},
		{"tls", "imobexemplo.vitrine.test", true, "", http.StatusOK},
		{"proxy https", "imobexemplo.vitrine.test", false, "https", http.StatusOK},
		{"localhost", "localhost:8080", false, "", http.StatusOK},
		{"ip", "127.0.0.1:8080", false, "", http.StatusOK},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/imoveis?q=1", nil)
			req.Host = c.host
			if c.tls {
				req.TLS = &tls.ConnectionState{}
			}
			if c.proto != "" {
				req.Header.Set("X-Forwarded-Proto", c.proto)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, c.status, rec.Code)
			if c.status == http.StatusPermanentRedirect {
				assert.Equal(t, "https://imobexemplo.vitrine.test:80/imoveis?q=1", rec.Header().Get("Location"))
			}
		})
	}
}

func TestSecurity(t *testing.T) {
	rec := httptest.NewRecorder()
	Security(true)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "img-src 'self' data: https:")
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = httptest.NewRecorder()
	Security(false)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}
