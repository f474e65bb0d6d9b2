//
//  internal/requestinfo/requestinfo.go
//
//  Per-request visitor metadata (user-agent class, IP + geolocation,
//  preferred language, and timestamp).  These structs are inert, so they
//  are safe to log or JSON-encode.
//
//  Dependencies
//  • internal/ua                        (uasurfer wrapper)
//  • github.com/oschwald/geoip2-golang  (MaxMind lookup)
//  • golang.org/x/text/language         (Accept-Language)
//

package requestinfo

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"
	"golang.org/x/text/language"

	"github.com/yanizio/vitrine/internal/ua"
)

//
//  -----------------------------
//  Struct definitions
//  -----------------------------
//

// Geo holds IP-based geolocation hints.  Fields are empty when no database
// is loaded or it has no match.
type Geo struct {
	IP         net.IP
	CountryISO string // "BR", "PT", ...
	City       string // "São Paulo", ...
}

// RequestInfo is stored in the request context by Enrich.
type RequestInfo struct {
	UA        ua.Info
	Geo       Geo
	Lang      string // first Accept-Language tag, "pt-BR"
	Timestamp time.Time
}

//
//  -----------------------------
//  GeoIP database
//  -----------------------------
//

// GeoDB wraps a MaxMind City reader.  A nil *GeoDB performs no lookups.
type GeoDB struct {
	r *geoip2.Reader
}

// OpenGeo opens a GeoLite2-City database.
func OpenGeo(path string) (*GeoDB, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoDB{r: r}, nil
}

// Close releases the reader.
func (g *GeoDB) Close() error {
	if g == nil {
		return nil
	}
	return g.r.Close()
}

// Lookup returns best-effort Geo data for ip.
func (g *GeoDB) Lookup(ip net.IP) Geo {
	if g == nil || ip == nil {
		return Geo{IP: ip}
	}
	rec, err := g.r.City(ip)
	if err != nil {
		return Geo{IP: ip}
	}
	city := rec.City.Names["pt-BR"]
	if city == "" {
		city = rec.City.Names["en"]
	}
	return Geo{IP: ip, CountryISO: rec.Country.IsoCode, City: city}
}

//
//  -----------------------------
//  Context helpers
//  -----------------------------
//

type ctxKey struct{}

// FromContext returns the pointer stored by Enrich, or nil.
func FromContext(ctx context.Context) *RequestInfo {
	v, _ := ctx.Value(ctxKey{}).(*RequestInfo)
	return v
}

// WithInfo returns ctx carrying info.
func WithInfo(ctx context.Context, info *RequestInfo) context.Context {
	return context.WithValue(ctx, ctxKey{}, info)
}

// Device returns the device class stored in ctx, or ua.Other.
func Device(ctx context.Context) string {
	if info := FromContext(ctx); info != nil && info.UA.Device != "" {
		return info.UA.Device
	}
	return ua.Other
}

//
//  -----------------------------
//  Internal helpers
//  -----------------------------
//

// primaryLang returns the highest-weighted Accept-Language tag.
func primaryLang(al string) string {
	tags, _, err := language.ParseAcceptLanguage(al)
	if err != nil || len(tags) == 0 {
		return ""
	}
	return tags[0].String()
}

// clientIP extracts the left-most address from X-Forwarded-For or
// X-Real-IP, falling back to remoteAddr ("ip:port").
func clientIP(xff, xrip, remoteAddr string) net.IP {
	if xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip
			}
		}
	}
	if xrip != "" {
		if ip := net.ParseIP(strings.TrimSpace(xrip)); ip != nil {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(remoteAddr)
}
