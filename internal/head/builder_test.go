package head

import (
	"strings"
	"testing"
)

func TestBuilder_HTML(t *testing.T) {
	b := New()
	b.SetTitle("Old")
	b.SetTitle(`Imóveis | Imob "Exemplo"`)
	b.SetDescription("Casas e apartamentos")
	b.Property("og:title", "Imóveis")
	b.Property("og:title", "duplicate ignored")
	b.Link("canonical", "https://imobexemplo.vitrine.app/imoveis")
	if err := b.JSONLD(map[string]string{"@type": "RealEstateAgent", "name": "</script>"}); err != nil {
		t.Fatalf("JSONLD: %v", err)
	}

	html := string(b.HTML())
	for _, want := range []string{
		`<title>Imóveis | Imob &#34;Exemplo&#34;</title>`,
		`<meta name="description" content="Casas e apartamentos">`,
		`<meta property="og:title" content="Imóveis">`,
		`<link rel="canonical" href="https://imobexemplo.vitrine.app/imoveis">`,
		`<script type="application/ld+json">`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("missing %s in\n%s", want, html)
		}
	}
	if strings.Contains(html, "duplicate ignored") {
		t.Error("duplicate property not dropped")
	}
	if strings.Contains(html, "</script>\"") || strings.Count(html, "</script>") != 1 {
		t.Errorf("json-ld payload can close the script tag:\n%s", html)
	}
}

func TestBuilder_Empty(t *testing.T) {
	if got := New().HTML(); got != "" {
		t.Fatalf("empty builder rendered %q", got)
	}
}
