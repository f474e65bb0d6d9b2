package variant

import (
	"html/template"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/yanizio/vitrine/internal/property"
)

// funcMap is shared by every built-in template.
func funcMap() template.FuncMap {
	return template.FuncMap{
		"brl":      brl,
		"area":     area,
		"num":      num,
		"card":     card,
		"href":     href,
		"op":       operationLabel,
		"filter":   filter,
		"paras":    paragraphs,
		"initials": initials,
	}
}

// brl formats a price as Brazilian reais ("R$ 450.000,00").  Nil prints as
// "Sob consulta".
func brl(p *float64) string {
	if p == nil {
		return "Sob consulta"
	}
	return message.NewPrinter(language.BrazilianPortuguese).Sprintf("R$ %.2f", *p)
}

func area(p *float64) string {
	if p == nil {
		return ""
	}
	return message.NewPrinter(language.BrazilianPortuguese).Sprintf("%.0f m²", *p)
}

func num(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func card(in view, v property.View) template.HTML {
	if in.Card == nil {
		return ""
	}
	return in.Card(v)
}

// href builds the detail link of a property.
func href(in view, v *property.View) string {
	if v == nil {
		return ""
	}
	prefix := strings.TrimRight(in.DetailPath, "/")
	if prefix == "" {
		prefix = "/imovel"
	}
	return prefix + "/" + v.ID
}

func operationLabel(op string) string {
	switch op {
	case property.OperationRent:
		return "Aluguel"
	case property.OperationBoth:
		return "Venda e aluguel"
	}
	return "Venda"
}

// filter applies a grid's operation and limit settings.
func filter(props []property.View, d Data) []property.View {
	out := make([]property.View, 0, len(props))
	for _, p := range props {
		if d.Operation != "" && p.Operation != d.Operation && p.Operation != property.OperationBoth {
			continue
		}
		out = append(out, p)
		if d.Limit > 0 && len(out) == d.Limit {
			break
		}
	}
	return out
}

// paragraphs splits body text on blank lines.
func paragraphs(s string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// initials is the text logo used when a site has no logo image.
func initials(name string) string {
	var sb strings.Builder
	for _, w := range strings.Fields(name) {
		for _, r := range w {
			sb.WriteString(strings.ToUpper(string(r)))
			break
		}
		if sb.Len() >= 2 {
			break
		}
	}
	return sb.String()
}
