package site

import (
	"errors"
	"strings"
	"testing"

	"github.com/yanizio/vitrine/internal/theme"
	"github.com/yanizio/vitrine/internal/variant"
)

func TestPageTypes_Exhaustive(t *testing.T) {
	wantSlugs := map[PageType]string{
		PageHome:          "home",
		PageListing:       "imoveis",
		PageListingDetail: "imovel",
		PageAbout:         "sobre",
		PageContact:       "contato",
		PageFAQ:           "faq",
		PageCustom:        "pagina",
	}
	if len(wantSlugs) != len(PageTypes) {
		t.Fatalf("PageTypes has %d entries, table %d", len(PageTypes), len(wantSlugs))
	}
	for _, pt := range PageTypes {
		if !pt.Valid() || pt.DefaultTitle() == "" {
			t.Fatalf("%s incomplete", pt)
		}
		if pt.DefaultSlug() != wantSlugs[pt] {
			t.Fatalf("%s slug = %q", pt, pt.DefaultSlug())
		}
		if !ValidSlug(pt.DefaultSlug()) {
			t.Fatalf("%s default slug invalid", pt)
		}
	}
	if PageType("BLOG").Valid() {
		t.Fatal("BLOG should not be valid")
	}
}

func TestParsePageType(t *testing.T) {
	cases := map[string]PageType{
		"home":           PageHome,
		"HOME":           PageHome,
		"imoveis":        PageListing,
		"listing_detail": PageListingDetail,
		" Contato ":      PageContact,
	}
	for in, want := range cases {
		got, err := ParsePageType(in)
		if err != nil || got != want {
			t.Fatalf("ParsePageType(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParsePageType("blog"); err == nil {
		t.Fatal("blog accepted")
	}
}

func TestValidateBlocks(t *testing.T) {
	ok := []ContentBlock{
		{Category: variant.Hero, Data: variant.Data{Heading: "Bem-vindo", ButtonURL: "/imoveis"}},
		{Category: variant.Grid, VariantID: "two-columns", Data: variant.Data{Limit: 6, Operation: "rent"}},
		{Category: variant.FAQ, Data: variant.Data{Items: []variant.FAQItem{{Question: "Q?", Answer: "A."}}}},
	}
	if err := ValidateBlocks(ok); err != nil {
		t.Fatalf("valid blocks rejected: %v", err)
	}

	bad := map[string]ContentBlock{
		"chrome category": {Category: variant.Header},
		"unknown":         {Category: "carousel"},
		"variant id":      {Category: variant.Text, VariantID: "Bad Id"},
		"limit":           {Category: variant.Grid, Data: variant.Data{Limit: 500}},
		"operation":       {Category: variant.Grid, Data: variant.Data{Operation: "swap"}},
		"email":           {Category: variant.Contact, Data: variant.Data{Email: "nope"}},
		"faq item":        {Category: variant.FAQ, Data: variant.Data{Items: []variant.FAQItem{{Question: "Q?"}}}},
	}
	for name, b := range bad {
		if err := ValidateBlocks([]ContentBlock{b}); !errors.Is(err, ErrInvalidBlock) {
			t.Errorf("%s: err = %v", name, err)
		}
	}
}

func TestValidateConfig(t *testing.T) {
	c := newConfig("s1", "imobexemplo")
	if err := ValidateConfig(c); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	c.Pages = append(c.Pages, Page{ID: "dup", Type: PageCustom, Slug: "home"})
	if err := ValidateConfig(c); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("duplicate slug: %v", err)
	}

	c = newConfig("s2", "Imob-Exemplo")
	if err := ValidateConfig(c); err == nil {
		t.Fatal("invalid subdomain accepted")
	}
}

func TestConfig_PageLookupAndClone(t *testing.T) {
	c := newConfig("s1", "imobexemplo")
	c.Pages = append(c.Pages, Page{ID: "h2", Type: PageHome, Slug: "inicio", Order: -1})

	if p, ok := c.PageBySlug("imoveis"); !ok || p.ID != "p2" {
		t.Fatalf("PageBySlug = %+v, %v", p, ok)
	}
	if p, ok := c.FirstOfType(PageHome); !ok || p.ID != "h2" {
		t.Fatalf("FirstOfType = %+v, %v", p, ok)
	}

	cl := c.Clone()
	cl.Pages[0].Blocks[0].Data.Heading = "changed"
	cl.ChosenVariants[variant.Header] = "solid"
	if c.Pages[0].Blocks[0].Data.Heading == "changed" || c.ChosenVariants[variant.Header] == "solid" {
		t.Fatal("clone shares state with original")
	}
}

func newConfig(id, sub string) *Config {
	return &Config{
		ID:             id,
		TenantID:       "t1",
		Name:           "Imob Exemplo",
		Subdomain:      sub,
		Status:         StatusDraft,
		Theme:          theme.Default,
		ChosenVariants: map[variant.Category]string{variant.Header: "classic"},
		Pages: []Page{
			{ID: "p1", Type: PageHome, Slug: "home", Title: "Início", Active: true, Order: 0,
				Blocks: []ContentBlock{{Category: variant.Hero, Data: variant.Data{Heading: "Olá"}}}},
			{ID: "p2", Type: PageListing, Slug: "imoveis", Title: "Imóveis", Active: true, Order: 1},
		},
	}
}
