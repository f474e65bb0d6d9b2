package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-cleanhttp"
)

// DefaultTimeout bounds one generation call.
const DefaultTimeout = 30 * time.Second

// maxResponse caps the body read from the service.
const maxResponse = 8 << 20

// HTTPOptions configures an HTTPGenerator.
type HTTPOptions struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	// Uploader stores inline image bytes.  Without one, responses that carry
	// bytes but no URL are an error.
	Uploader Uploader
	Client   *http.Client
}

// HTTPGenerator calls the generation service with one JSON POST per asset.
//
//	POST {endpoint}
//	Authorization: Bearer {api key}
//	{"kind":"logo","siteId":"…","siteName":"…","prompt":"…"}
//
//	200 {"url":"https://…"}                          ← hosted image
//	200 {"image":"<base64>","contentType":"image/png"} ← bytes, uploaded here
//	200 {"text":{"heading":"…","body":"…"}}           ← copy
type HTTPGenerator struct {
	opts   HTTPOptions
	client *http.Client
}

// NewHTTPGenerator returns a generator for opts.Endpoint.
func NewHTTPGenerator(opts HTTPOptions) *HTTPGenerator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	c := opts.Client
	if c == nil {
		c = cleanhttp.DefaultPooledClient()
	}
	return &HTTPGenerator{opts: opts, client: c}
}

type response struct {
	URL         string            `json:"url"`
	Image       string            `json:"image"`
	ContentType string            `json:"contentType"`
	Text        map[string]string `json:"text"`
}

// StatusError is a non-2xx answer from the service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("asset service returned %d: %s", e.Code, e.Body)
}

func (g *HTTPGenerator) Generate(ctx context.Context, p Prompt) (Ref, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	body, err := json.Marshal(p)
	if err != nil {
		return Ref{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Ref{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.opts.APIKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Ref{}, fmt.Errorf("asset service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return Ref{}, fmt.Errorf("asset service: read body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return Ref{}, &StatusError{Code: resp.StatusCode, Body: snippet(raw)}
	}

	var r response
	if err := json.Unmarshal(raw, &r); err != nil {
		return Ref{}, fmt.Errorf("asset service: decode: %w", err)
	}
	return g.ref(ctx, p, r)
}

func (g *HTTPGenerator) ref(ctx context.Context, p Prompt, r response) (Ref, error) {
	out := Ref{Kind: p.Kind, URL: r.URL, Text: r.Text, ContentType: r.ContentType}
	switch p.Kind {
	case KindCopy:
		if len(r.Text) == 0 {
			return Ref{}, fmt.Errorf("asset service: empty copy")
		}
		return out, nil
	default:
		if r.URL != "" {
			return out, nil
		}
		if r.Image == "" {
			return Ref{}, fmt.Errorf("asset service: no image in response")
		}
		if g.opts.Uploader == nil {
			return Ref{}, fmt.Errorf("asset service: inline image but no uploader configured")
		}
		data, err := base64.StdEncoding.DecodeString(r.Image)
		if err != nil {
			return Ref{}, fmt.Errorf("asset service: image: %w", err)
		}
		ct := r.ContentType
		if ct == "" {
			ct = http.DetectContentType(data)
		}
		url, err := g.opts.Uploader.Upload(ctx, ObjectKey(p, ct), ct, data)
		if err != nil {
			return Ref{}, err
		}
		out.URL = url
		out.ContentType = ct
		return out, nil
	}
}

// ObjectKey is the storage key of a generated image:
// sites/<siteId>/<kind>-<uuid><ext>.
func ObjectKey(p Prompt, contentType string) string {
	ext := ".bin"
	switch strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]) {
	case "image/png":
		ext = ".png"
	case "image/jpeg":
		ext = ".jpg"
	case "image/svg+xml":
		ext = ".svg"
	case "image/webp":
		ext = ".webp"
	}
	return path.Join("sites", p.SiteID, string(p.Kind)+"-"+uuid.NewString()+ext)
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
