package site

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	v = validator.New()

	slugRe      = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	subdomainRe = regexp.MustCompile(`^[a-z0-9]{1,63}$`)
	variantRe   = regexp.MustCompile(`^[a-z0-9-]{0,64}$`)
)

// ValidSubdomain reports whether s is a storable subdomain label.
func ValidSubdomain(s string) bool { return subdomainRe.MatchString(s) }

// ValidSlug reports whether s is a storable page slug.
func ValidSlug(s string) bool { return len(s) <= 80 && slugRe.MatchString(s) }

// ValidateBlocks checks a page's content blocks before they are written.
// Only placeable categories are accepted and each payload must satisfy its
// validation tags.
func ValidateBlocks(blocks []ContentBlock) error {
	for i, b := range blocks {
		if !b.Category.Valid() || !b.Category.Placeable() {
			return fmt.Errorf("%w: block %d: category %q not allowed", ErrInvalidBlock, i, b.Category)
		}
		if !variantRe.MatchString(b.VariantID) {
			return fmt.Errorf("%w: block %d: variant id %q", ErrInvalidBlock, i, b.VariantID)
		}
		if err := v.Struct(b.Data); err != nil {
			return fmt.Errorf("%w: block %d: %v", ErrInvalidBlock, i, err)
		}
	}
	return nil
}

// ValidatePage checks the writable fields of a page.
func ValidatePage(p *Page) error {
	if !p.Type.Valid() {
		return fmt.Errorf("page %q: unknown type %q", p.Slug, p.Type)
	}
	if !ValidSlug(p.Slug) {
		return fmt.Errorf("page slug %q is not valid", p.Slug)
	}
	return ValidateBlocks(p.Blocks)
}

// ValidateConfig checks a site before Create.
func ValidateConfig(c *Config) error {
	if !ValidSubdomain(c.Subdomain) {
		return fmt.Errorf("subdomain %q is not valid", c.Subdomain)
	}
	if !c.Status.Valid() {
		return fmt.Errorf("status %q is not valid", c.Status)
	}
	if err := v.Struct(c.Theme); err != nil {
		return fmt.Errorf("theme: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Pages))
	for i := range c.Pages {
		p := &c.Pages[i]
		if err := ValidatePage(p); err != nil {
			return err
		}
		if _, dup := seen[p.Slug]; dup {
			return fmt.Errorf("duplicate page slug %q", p.Slug)
		}
		seen[p.Slug] = struct{}{}
	}
	return nil
}
