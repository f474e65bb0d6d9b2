// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/yanizio/vitrine/internal/site"
)

// SiteLookup reports which hosts belong to a provisioned site.
type SiteLookup interface {
	Resolve(ctx context.Context, hostOrSubdomain string) (*site.Config, error)
}

// ForceHTTPS wraps h.  If the request is plain HTTP, the host is not a
// localhost name, and sites resolves it, the wrapper issues a 308 Permanent
// Redirect to the HTTPS version of the same URL.  A request forwarded by a
// TLS-terminating proxy (X-Forwarded-Proto: https) counts as HTTPS.
func ForceHTTPS(sites SiteLookup, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := stripPort(r.Host)
		if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") || isLocal(host) {
			h.ServeHTTP(w, r)
			return
		}

		// Only redirect hosts that resolve to a site.
		if _, err := sites.Resolve(r.Context(), host); err == nil {
			target := "https://" + r.Host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusPermanentRedirect)
			return
		}

		// Unknown host → keep normal flow (404 later).
		h.ServeHTTP(w, r)
	})
}

func isLocal(host string) bool {
	return host == "localhost" || strings.HasSuffix(host, ".localhost") || net.ParseIP(host) != nil
}

// stripPort removes the :port suffix from Host when present.
func stripPort(h string) string {
	if host, _, err := net.SplitHostPort(h); err == nil {
		return host
	}
	return h
}
