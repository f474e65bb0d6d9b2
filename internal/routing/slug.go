// internal/routing/slug.go
//
// Label and path helpers.
//
// • Fold(s)          ─ strips diacritics ("Imóveis" → "Imoveis").
// • Label(s)         ─ lowercase alphanumeric DNS label (no dashes), max 63.
// • Segments(path)   ─ non-empty segments of a decoded path.
// • BuildPath(p, s)  ─ joins parent + slug with exactly one leading slash.
//
// Notes
// -----
// • Folding uses NFD decomposition and drops combining marks, so "ç" → "c"
//   and "ã" → "a".  Characters without a decomposition (e.g. "ß") are
//   dropped by the ASCII filter.
package routing

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLabel is the DNS label length limit.
const MaxLabel = 63

// Fold removes diacritics from s.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Label converts s into a subdomain label: folded, lower-cased, every
// non-alphanumeric removed, and cut to MaxLabel.  It may return "".
func Label(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(Fold(s)) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == MaxLabel {
				break
			}
		}
	}
	return b.String()
}

// Segments splits an already-decoded URL path (r.URL.Path) into its
// non-empty segments.  Segments are not unescaped again.
func Segments(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// BuildPath joins parent + slug ensuring exactly one leading slash and no
// duplicate separators.
func BuildPath(parent, slug string) string {
	parent = strings.Trim(parent, "/")
	slug = strings.Trim(slug, "/")

	switch {
	case parent == "" && slug == "":
		return "/"
	case parent == "":
		return "/" + slug
	case slug == "":
		return "/" + parent
	default:
		return "/" + parent + "/" + slug
	}
}
