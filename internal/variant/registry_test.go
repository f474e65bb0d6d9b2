package variant

import (
	"errors"
	"html/template"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yanizio/vitrine/internal/metrics"
	"github.com/yanizio/vitrine/internal/property"
	"github.com/yanizio/vitrine/internal/theme"
)

func builtin(t *testing.T) (*Registry, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	r, err := Builtin(zap.New(core))
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	return r, logs
}

func TestCategories_Exhaustive(t *testing.T) {
	if len(Categories) != len(builtinDefaults) || len(Categories) != len(builtinIDs) {
		t.Fatalf("tables out of sync: %d categories, %d defaults, %d id lists",
			len(Categories), len(builtinDefaults), len(builtinIDs))
	}
	for _, c := range Categories {
		if !c.Valid() {
			t.Fatalf("%s not Valid", c)
		}
		if _, err := ParseCategory(string(c)); err != nil {
			t.Fatalf("ParseCategory(%s): %v", c, err)
		}
	}
	if Category("carousel").Valid() {
		t.Fatal("carousel should not be valid")
	}
	if _, err := ParseCategory("carousel"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("err = %v", err)
	}
}

func TestGet_DefaultAndExplicit(t *testing.T) {
	r, logs := builtin(t)

	d, err := r.Get(Header, "")
	if err != nil || d.ID != "classic" {
		t.Fatalf("empty id: %+v, %v", d, err)
	}
	d, err = r.Get(Header, "solid")
	if err != nil || d.ID != "solid" {
		t.Fatalf("explicit id: %+v, %v", d, err)
	}
	if logs.Len() != 0 {
		t.Fatalf("unexpected warnings: %v", logs.All())
	}
}

func TestGet_UnknownIDFallsBack(t *testing.T) {
	r, logs := builtin(t)
	before := testutil.ToFloat64(metrics.VariantFallbackTotal.WithLabelValues("card"))

	d, err := r.Get(Card, "retired-style")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if d.ID != r.Default(Card) {
		t.Fatalf("id = %q, want default", d.ID)
	}
	if logs.FilterMessage("unknown variant, using default").Len() != 1 {
		t.Fatalf("warning not logged: %v", logs.All())
	}
	if got := testutil.ToFloat64(metrics.VariantFallbackTotal.WithLabelValues("card")); got != before+1 {
		t.Fatalf("fallback metric = %v, want %v", got, before+1)
	}
}

func TestGet_UnknownCategory(t *testing.T) {
	r, _ := builtin(t)
	if _, err := r.Get(Category("carousel"), "x"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("err = %v, want ErrUnknownCategory", err)
	}
}

func TestNewRegistry_RejectsBrokenTables(t *testing.T) {
	noop := func(Input, theme.Tokens) (template.HTML, error) { return "", nil }
	all := func(except Category) map[Category]string {
		m := map[Category]string{}
		for _, c := range Categories {
			if c != except {
				m[c] = "a"
			}
		}
		return m
	}
	var ds []Descriptor
	for _, c := range Categories {
		ds = append(ds, NewDescriptor(c, "a", noop))
	}

	if _, err := NewRegistry(nil, all(""), ds...); err != nil {
		t.Fatalf("complete table rejected: %v", err)
	}
	if _, err := NewRegistry(nil, all(Grid), ds...); err == nil {
		t.Fatal("missing default accepted")
	}
	if _, err := NewRegistry(nil, all(""), append(ds, NewDescriptor(Card, "a", noop))...); err == nil {
		t.Fatal("duplicate id accepted")
	}
}

func TestEveryBuiltinRendersEmptyInput(t *testing.T) {
	r, _ := builtin(t)
	for _, c := range Categories {
		for _, id := range r.IDs(c) {
			d, _ := r.Get(c, id)
			if _, err := d.Render(Input{}, theme.Default); err != nil {
				t.Errorf("%s/%s: %v", c, id, err)
			}
		}
	}
}

func TestHeader_UsesThemeAndEscapes(t *testing.T) {
	r, _ := builtin(t)
	d, _ := r.Get(Header, "solid")
	tok := theme.Default.With(theme.Overrides{Primary: "#123456"})

	out, err := d.Render(Input{
		Site: SiteInfo{Name: "Imob <Exemplo>"},
		Nav:  []NavLink{{Title: "Imóveis", URL: "/imoveis", Active: true}},
	}, tok)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := string(out)
	if !strings.Contains(html, "#123456") {
		t.Fatalf("theme color missing: %s", html)
	}
	if strings.Contains(html, "<Exemplo>") || !strings.Contains(html, "Imob &lt;Exemplo&gt;") {
		t.Fatalf("site name not escaped: %s", html)
	}
	if !strings.Contains(html, `aria-current="page"`) {
		t.Fatalf("active nav missing: %s", html)
	}
}

func TestGrid_FiltersAndUsesCard(t *testing.T) {
	r, _ := builtin(t)
	grid, _ := r.Get(Grid, "")

	var carded []string
	in := Input{
		Data: Data{Heading: "Destaques", Operation: property.OperationRent, Limit: 2},
		Properties: []property.View{
			{ID: "a", Operation: property.OperationSale},
			{ID: "b", Operation: property.OperationRent},
			{ID: "c", Operation: property.OperationBoth},
			{ID: "d", Operation: property.OperationRent},
		},
		Card: func(v property.View) template.HTML {
			carded = append(carded, v.ID)
			return template.HTML(`<i>` + v.ID + `</i>`)
		},
	}
	out, err := grid.Render(in, theme.Default)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Join(carded, ",") != "b,c" {
		t.Fatalf("carded = %v", carded)
	}
	if !strings.Contains(string(out), "<i>b</i><i>c</i>") {
		t.Fatalf("cards not embedded raw: %s", out)
	}
}

func TestGrid_EmptyListing(t *testing.T) {
	r, _ := builtin(t)
	grid, _ := r.Get(Grid, "list")
	out, _ := grid.Render(Input{}, theme.Default)
	if !strings.Contains(string(out), "Nenhum imóvel") {
		t.Fatalf("empty state missing: %s", out)
	}
}

func TestCard_PriceAndLink(t *testing.T) {
	r, _ := builtin(t)
	c, _ := r.Get(Card, "")
	price := 450000.0
	v := property.View{ID: "p9", Title: "Casa", PriceSale: &price, FeaturedImage: property.PlaceholderImage}

	out, err := c.Render(Input{Property: &v, DetailPath: "/imovel/"}, theme.Default)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := string(out)
	if !strings.Contains(html, `href="/imovel/p9"`) {
		t.Fatalf("detail link missing: %s", html)
	}
	if !strings.Contains(html, "450.000,00") {
		t.Fatalf("price not formatted: %s", html)
	}
}

func TestFuncs(t *testing.T) {
	if got := brl(nil); got != "Sob consulta" {
		t.Fatalf("brl(nil) = %q", got)
	}
	if got := initials("Imob Exemplo Ltda"); got != "IE" {
		t.Fatalf("initials = %q", got)
	}
	if got := paragraphs("a\n\n\n b \r\n\r\nc"); strings.Join(got, "|") != "a|b|c" {
		t.Fatalf("paragraphs = %q", got)
	}
	if operationLabel(property.OperationBoth) != "Venda e aluguel" {
		t.Fatal("operation label")
	}
}
