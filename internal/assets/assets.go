// Package assets is the client side of the asset-generation service: logo
// images and page copy produced from a prompt.
//
// Context
// -------
// Only the provisioning background task calls a Generator.  Calls are
// best-effort: the caller records failures per asset and never retries.
// Image bytes returned by the service are stored through an Uploader (S3)
// so sites reference a stable public URL.
package assets

import (
	"context"
	"errors"
)

// Kind of asset.
type Kind string

const (
	KindLogo Kind = "logo"
	KindCopy Kind = "copy"
)

// ErrDisabled is returned by the Disabled generator.
var ErrDisabled = errors.New("asset generation disabled")

// Prompt describes one asset to generate.
type Prompt struct {
	Kind     Kind   `json:"kind"`
	SiteID   string `json:"siteId"`
	SiteName string `json:"siteName"`
	PageType string `json:"pageType,omitempty"`
	Text     string `json:"prompt"`
	// Fields lists the copy fields wanted ("heading", "body").
	Fields []string `json:"fields,omitempty"`
}

// Ref is a generated asset.  Logos carry URL; copy carries Text keyed by
// field.
type Ref struct {
	Kind        Kind              `json:"kind"`
	URL         string            `json:"url,omitempty"`
	Text        map[string]string `json:"text,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
}

// Generator produces one asset per call.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (Ref, error)
}

// Uploader stores bytes and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Disabled is the generator used when no service is configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, Prompt) (Ref, error) { return Ref{}, ErrDisabled }

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, p Prompt) (Ref, error)

func (f GeneratorFunc) Generate(ctx context.Context, p Prompt) (Ref, error) { return f(ctx, p) }
