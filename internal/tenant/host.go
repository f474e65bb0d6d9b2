// internal/tenant/host.go
//
// Host normalisation shared by the resolver and the HTTP layer.
//
// Context
// -------
// The resolver accepts anything from a bare subdomain label ("imobexemplo")
// to a full URL ("https://imobexemplo.vitrine.app:8443/imoveis").  Normalize
// reduces every form to a lowercase host name:
//
//   • scheme and path are stripped,
//   • the port is dropped (IPv6 literals keep their brackets),
//   • one trailing dot is removed.
//
// Notes
// -----
// • "localhost" maps to the configured LocalhostAlias (or the
//   VITRINE_LOCALHOST_ALIAS env var) so a dev instance can masquerade as any
//   provisioned site.
// • No logging here; callers decide what to log.
package tenant

import (
	"net"
	"os"
	"strings"
)

// Normalize reduces raw to a lowercase host name.
func Normalize(raw string) string {
	h := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(h, "://"); i >= 0 {
		h = h[i+3:]
	}
	if i := strings.IndexAny(h, "/?#"); i >= 0 {
		h = h[:i]
	}
	if i := strings.LastIndexByte(h, '@'); i >= 0 {
		h = h[i+1:]
	}
	if host, _, err := net.SplitHostPort(h); err == nil {
		h = host
	}
	return strings.TrimSuffix(h, ".")
}

// subdomainOf extracts the site label from host.  A dotless host is the
// label itself; otherwise the host must be exactly one label below
// baseDomain or ".localhost".
func subdomainOf(host, baseDomain string) (string, bool) {
	if host == "" {
		return "", false
	}
	if !strings.Contains(host, ".") {
		return host, true
	}
	for _, suffix := range []string{baseDomain, "localhost"} {
		if suffix == "" {
			continue
		}
		if label, ok := strings.CutSuffix(host, "."+suffix); ok && label != "" && !strings.Contains(label, ".") {
			return label, true
		}
	}
	return "", false
}

// lookupAlias applies the localhost alias, env var first.
func lookupAlias(host, alias string) string {
	if host != "localhost" {
		return host
	}
	if a := os.Getenv("VITRINE_LOCALHOST_ALIAS"); a != "" {
		return strings.ToLower(a)
	}
	if alias != "" {
		return strings.ToLower(alias)
	}
	return host
}
