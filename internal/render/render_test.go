package render

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/vitrine/internal/compose"
	"github.com/yanizio/vitrine/internal/property"
	"github.com/yanizio/vitrine/internal/site"
	"github.com/yanizio/vitrine/internal/tenant"
	"github.com/yanizio/vitrine/internal/theme"
	"github.com/yanizio/vitrine/internal/variant"
)

type fakeProps struct {
	raws  []property.Raw
	err   error
	limit int
	block bool
}

func (f *fakeProps) ListActive(ctx context.Context, _ string, limit int) ([]property.Raw, error) {
	f.limit = limit
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.raws, f.err
}

// findingProps also implements property.Finder.
type findingProps struct {
	fakeProps
	extra map[string]property.Raw
}

func (f *findingProps) FindActive(_ context.Context, _, id string) (*property.Raw, error) {
	if r, ok := f.extra[id]; ok {
		return &r, nil
	}
	return nil, property.ErrNotFound
}

func str(s string) *string { return &s }

func exampleSite() *site.Config {
	block := func(c variant.Category, order int, heading string) site.ContentBlock {
		return site.ContentBlock{Category: c, Order: order, Data: variant.Data{Heading: heading}}
	}
	return &site.Config{
		ID:        "s1",
		TenantID:  "t1",
		Name:      "Imob Exemplo",
		Subdomain: "imobexemplo",
		Status:    site.StatusPublished,
		Theme:     theme.Default,
		Pages: []site.Page{
			{ID: "p-home", Type: site.PageHome, Slug: "home", Title: "Início", Active: true, Order: 0,
				Blocks: []site.ContentBlock{block(variant.Hero, 0, "Bem-vindo"), block(variant.Grid, 1, "Destaques"), block(variant.CTA, 2, "Fale conosco")}},
			{ID: "p-list", Type: site.PageListing, Slug: "imoveis", Title: "Imóveis", Active: true, Order: 1,
				Blocks: []site.ContentBlock{block(variant.Grid, 0, "Todos os imóveis")}},
			{ID: "p-detail", Type: site.PageListingDetail, Slug: "imovel", Active: true, Order: 2,
				Blocks: []site.ContentBlock{{Category: variant.Detail}}},
			{ID: "p-about", Type: site.PageAbout, Slug: "sobre", Title: "Sobre nós", Active: false, Order: 3,
				Blocks: []site.ContentBlock{block(variant.Text, 0, "Quem somos")}},
		},
	}
}

func newRenderer(t *testing.T, props property.Lister, cfgs ...*site.Config) *Renderer {
	t.Helper()
	store := site.NewMemoryStore()
	for _, c := range cfgs {
		require.NoError(t, store.Create(context.Background(), c))
	}
	res := tenant.New(store, tenant.Options{BaseDomain: "vitrine.app", EvictInterval: time.Hour}, zap.NewNop())
	t.Cleanup(res.Close)

	reg, err := variant.Builtin(zap.NewNop())
	require.NoError(t, err)
	return New(res, props, compose.New(reg, zap.NewNop()), Options{BaseDomain: "vitrine.app", FetchTimeout: 200 * time.Millisecond}, zap.NewNop())
}

func TestRender_HomeAndListing(t *testing.T) {
	props := &fakeProps{raws: []property.Raw{
		{ID: "a1", Title: str("Casa com quintal"), Status: property.StatusActive},
		{ID: "a2", Status: property.StatusActive},
	}}
	r := newRenderer(t, props, exampleSite())
	ctx := context.Background()

	home, err := r.Render(ctx, "imobexemplo", nil)
	require.NoError(t, err)
	assert.Equal(t, "p-home", home.PageID)
	assert.Equal(t, "Início | Imob Exemplo", home.Title)
	assert.Len(t, home.Tree.Blocks, 3)
	assert.Empty(t, home.Tree.Errors)
	assert.Equal(t, DefaultPropertyLimit, props.limit)

	doc := string(home.HTML)
	assert.Contains(t, doc, "<title>Início | Imob Exemplo</title>")
	assert.Contains(t, doc, `<link rel="canonical" href="https://imobexemplo.vitrine.app/">`)
	assert.Contains(t, doc, "Casa com quintal")
	assert.Contains(t, doc, property.DefaultTitle, "record without title rendered with its default")
	assert.Contains(t, doc, `href="/imovel/a1"`)
	assert.NotContains(t, doc, "Sobre nós", "inactive page stays out of the nav")

	list, err := r.Render(ctx, "imobexemplo.vitrine.app", []string{"imoveis"})
	require.NoError(t, err)
	assert.Equal(t, "p-list", list.PageID)
	assert.Len(t, list.Tree.Blocks, 1)
}

func TestRender_NotFoundIsUniform(t *testing.T) {
	r := newRenderer(t, &fakeProps{}, exampleSite())
	ctx := context.Background()

	cases := map[string]struct {
		host string
		segs []string
	}{
		"unknown site":      {"naoexiste", nil},
		"unknown page":      {"imobexemplo", []string{"nao-existe"}},
		"inactive page":     {"imobexemplo", []string{"sobre"}},
		"extra segment":     {"imobexemplo", []string{"imoveis", "x"}},
		"detail without id": {"imobexemplo", []string{"imovel"}},
		"unknown property":  {"imobexemplo", []string{"imovel", "zz"}},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			p, err := r.Render(ctx, c.host, c.segs)
			assert.Nil(t, p)
			assert.True(t, err == ErrNotFound, "err = %v", err)
		})
	}
}

func TestRender_HomeFallsBackToFirstHomePage(t *testing.T) {
	cfg := exampleSite()
	cfg.Pages[0].Slug = "inicio"
	r := newRenderer(t, &fakeProps{}, cfg)

	p, err := r.Render(context.Background(), "imobexemplo", nil)
	require.NoError(t, err)
	assert.Equal(t, "p-home", p.PageID)
}

func TestRender_Detail(t *testing.T) {
	price := 900000.0
	props := &findingProps{
		fakeProps: fakeProps{raws: []property.Raw{{ID: "a1", Title: str("Cobertura"), PriceSale: &price}}},
		extra:     map[string]property.Raw{"old": {ID: "old", Title: str("Terreno")}},
	}
	r := newRenderer(t, props, exampleSite())
	ctx := context.Background()

	p, err := r.Render(ctx, "imobexemplo", []string{"imovel", "a1"})
	require.NoError(t, err)
	assert.Equal(t, "Cobertura | Imob Exemplo", p.Title)
	assert.Contains(t, string(p.HTML), "900.000,00")

	p, err = r.Render(ctx, "imobexemplo", []string{"imovel", "old"})
	require.NoError(t, err, "property outside the listing comes from the finder")
	assert.Equal(t, "Terreno | Imob Exemplo", p.Title)
}

func TestRender_PropertyFailureIsProjectingError(t *testing.T) {
	r := newRenderer(t, &fakeProps{err: errors.New("db down")}, exampleSite())

	_, err := r.Render(context.Background(), "imobexemplo", nil)
	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, StageProjecting, re.Stage)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestRender_PropertyFetchTimesOut(t *testing.T) {
	r := newRenderer(t, &fakeProps{block: true}, exampleSite())

	start := time.Now()
	_, err := r.Render(context.Background(), "imobexemplo", nil)
	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, StageProjecting, re.Stage)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRender_MaintenanceAndDraft(t *testing.T) {
	cfg := exampleSite()
	cfg.Status = site.StatusMaintenance
	draft := exampleSite()
	draft.ID, draft.Subdomain, draft.Status = "s2", "rascunho", site.StatusDraft
	r := newRenderer(t, &fakeProps{}, cfg, draft)

	p, err := r.Render(context.Background(), "imobexemplo", nil)
	require.NoError(t, err)
	assert.True(t, p.Maintenance)
	assert.Contains(t, string(p.HTML), `<meta name="robots" content="noindex">`)

	p, err = r.Render(context.Background(), "rascunho", []string{"imoveis"})
	require.NoError(t, err)
	assert.False(t, p.Maintenance)
	assert.Equal(t, site.StatusDraft, p.Status)
}

func TestRender_MetadataFallbacks(t *testing.T) {
	cfg := exampleSite()
	cfg.Pages[1].Title = ""
	cfg.MetaDescription = "Imóveis em Curitiba"
	r := newRenderer(t, &fakeProps{}, cfg)

	p, err := r.Render(context.Background(), "imobexemplo", []string{"imoveis"})
	require.NoError(t, err)
	assert.Equal(t, "Imob Exemplo", p.Title, "site name when the page has no title")
	assert.Equal(t, "Imóveis em Curitiba", p.Description)

	cfg2 := exampleSite()
	cfg2.ID, cfg2.Subdomain, cfg2.Name = "s3", "semnome", ""
	cfg2.Pages[1].Title = ""
	r = newRenderer(t, &fakeProps{}, cfg2)
	p, err = r.Render(context.Background(), "semnome", []string{"imoveis"})
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, p.Title)
	assert.Equal(t, DefaultDescription, p.Description)
}

func TestNavigation(t *testing.T) {
	cfg := exampleSite()
	nav := navigation(cfg, &cfg.Pages[1])
	require.Len(t, nav, 2)
	assert.Equal(t, "/", nav[0].URL)
	assert.Equal(t, "/imoveis", nav[1].URL)
	assert.True(t, nav[1].Active)
	assert.False(t, nav[0].Active)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate(" abc ", 10))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.True(t, strings.HasSuffix(truncate(strings.Repeat("á", 200), 160), "…"))
}
