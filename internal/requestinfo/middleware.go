// internal/requestinfo/middleware.go
//
// HTTP middleware that enriches each request with *RequestInfo.
//
/*
Context
--------
This handler sits high in the public chain, before the site renderer.
For every request it:

  1. Parses the User-Agent header and Accept-Language list.
  2. Extracts the left-most client IP from X-Forwarded-For or X-Real-IP,
     falling back to `r.RemoteAddr`.
  3. Performs a GeoLite2 lookup when a database is loaded.
  4. Stores a `*RequestInfo` in `request.Context`.

Instrumentation
---------------
At debug level each invocation logs the client IP, country, device class,
bot flag, and request path.
*/
package requestinfo

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/vitrine/internal/ua"
)

// Enrich returns middleware that attaches *RequestInfo.  geo may be nil.
func Enrich(geo *GeoDB, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r.Header.Get("X-Forwarded-For"), r.Header.Get("X-Real-Ip"), r.RemoteAddr)

			info := &RequestInfo{
				UA:        ua.Parse(r.UserAgent()),
				Geo:       geo.Lookup(ip),
				Lang:      primaryLang(r.Header.Get("Accept-Language")),
				Timestamp: time.Now().UTC(),
			}

			if ce := log.Check(zap.DebugLevel, "request info"); ce != nil {
				ce.Write(
					zap.Stringer("ip", info.Geo.IP),
					zap.String("country", info.Geo.CountryISO),
					zap.String("device", info.UA.Device),
					zap.Bool("bot", info.UA.IsBot),
					zap.String("path", r.URL.Path),
				)
			}

			next.ServeHTTP(w, r.WithContext(WithInfo(r.Context(), info)))
		})
	}
}
