package provision

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/vitrine/internal/assets"
	"github.com/yanizio/vitrine/internal/catalog"
	"github.com/yanizio/vitrine/internal/site"
	"github.com/yanizio/vitrine/internal/task"
	"github.com/yanizio/vitrine/internal/variant"
)

// job is the per-call context of one background task.  Nothing in it is
// shared with other provisioning calls.
type job struct {
	w      *Workflow
	siteID string
	name   string
	tpl    *catalog.Template
}

// backgroundTask builds the logo item and one copy item per page.
func (w *Workflow) backgroundTask(cfg *site.Config, tpl *catalog.Template) task.Task {
	j := &job{w: w, siteID: cfg.ID, name: cfg.Name, tpl: tpl}

	items := []task.Item{{Name: "logo", Kind: string(assets.KindLogo), Run: j.logo}}
	for _, p := range cfg.Pages {
		items = append(items, task.Item{
			Name: "page:" + p.Slug,
			Kind: string(assets.KindCopy),
			Run:  j.copyFor(p),
		})
	}
	return task.Task{
		SiteID: cfg.ID,
		Items:  items,
		OnDone: func(task.Status) {
			if w.d.Cache != nil {
				w.d.Cache.InvalidateSite(cfg.ID)
			}
		},
	}
}

func (j *job) logo(ctx context.Context) error {
	ref, err := j.w.d.Generator.Generate(ctx, assets.Prompt{
		Kind:     assets.KindLogo,
		SiteID:   j.siteID,
		SiteName: j.name,
		Text:     fmt.Sprintf("Logotipo para a imobiliária %q", j.name),
	})
	if err != nil {
		if errors.Is(err, assets.ErrDisabled) {
			return nil
		}
		return &AssetError{Kind: assets.KindLogo, Subject: "logo", Err: err}
	}
	if ref.URL == "" {
		return &AssetError{Kind: assets.KindLogo, Subject: "logo", Err: errors.New("no url returned")}
	}
	if err := j.w.d.Store.UpdateLogo(ctx, j.siteID, ref.URL); err != nil {
		return fmt.Errorf("store logo: %w", err)
	}
	return nil
}

// copyFor fills page p with the template layout and generated copy.  A
// failed generation still writes the layout with the template's own text
// and reports the AssetError.
func (j *job) copyFor(p site.Page) func(context.Context) error {
	return func(ctx context.Context) error {
		blocks := j.tpl.Layout(p.Type)
		if len(blocks) == 0 {
			return nil
		}
		subject := "page:" + p.Slug

		var genErr error
		ref, err := j.w.d.Generator.Generate(ctx, assets.Prompt{
			Kind:     assets.KindCopy,
			SiteID:   j.siteID,
			SiteName: j.name,
			PageType: p.Type.Key(),
			Text:     fmt.Sprintf("Textos da página %q do site da imobiliária %q", p.Title, j.name),
			Fields:   copyFields(blocks),
		})
		switch {
		case err == nil:
			filled := applyCopy(blocks, ref.Text)
			if verr := site.ValidateBlocks(filled); verr != nil {
				genErr = &AssetError{Kind: assets.KindCopy, Subject: subject, Err: verr}
			} else {
				blocks = filled
			}
		case !errors.Is(err, assets.ErrDisabled):
			genErr = &AssetError{Kind: assets.KindCopy, Subject: subject, Err: err}
		}

		if err := j.w.d.Store.UpdatePageContent(ctx, p.ID, blocks); err != nil {
			return fmt.Errorf("store %s: %w", subject, err)
		}
		if genErr != nil {
			j.w.d.Log.Warn("page copy not generated; template text kept",
				zap.String("site_id", j.siteID), zap.String("page", p.Slug), zap.Error(genErr))
		}
		return genErr
	}
}

// copyFields names the generated fields per block: "<index>.<field>".
func copyFields(blocks []site.ContentBlock) []string {
	var out []string
	for i, b := range blocks {
		for _, f := range textFields(b.Category) {
			out = append(out, fmt.Sprintf("%d.%s", i, f))
		}
	}
	return out
}

func textFields(c variant.Category) []string {
	switch c {
	case variant.Hero:
		return []string{"heading", "subheading"}
	case variant.Text:
		return []string{"heading", "body"}
	case variant.CTA:
		return []string{"heading", "subheading"}
	case variant.Grid, variant.FAQ, variant.Contact:
		return []string{"heading"}
	default:
		return nil
	}
}

// applyCopy returns a copy of blocks with generated text applied.  Unknown
// keys and blank values are ignored.
func applyCopy(blocks []site.ContentBlock, text map[string]string) []site.ContentBlock {
	out := append([]site.ContentBlock(nil), blocks...)
	for key, val := range text {
		val = strings.TrimSpace(val)
		idx, field, ok := strings.Cut(key, ".")
		if !ok || val == "" {
			continue
		}
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 || i >= len(out) {
			continue
		}
		d := &out[i].Data
		switch field {
		case "heading":
			d.Heading = val
		case "subheading":
			d.Subheading = val
		case "body":
			d.Body = val
		}
	}
	return out
}
