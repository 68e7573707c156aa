package mapping

import (
	"fmt"
	"regexp"
	"strings"
)

// Document identifies a publication type.
type Document int

const (
	Unemployment Document = iota // III.3 seguro de desempleo
	Collections                  // II recaudación
)

func (d Document) String() string {
	if d == Collections {
		return "recaudacion"
	}
	return "desempleo"
}

// ParseDocument accepts the Spanish and English names.
func ParseDocument(s string) (Document, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desempleo", "unemployment":
		return Unemployment, nil
	case "recaudacion", "recaudación", "collections":
		return Collections, nil
	}
	return 0, fmt.Errorf("unknown document type %q", s)
}

// Vocabulary is the metric vocabulary active for one document. It is chosen once, before
// any column is mapped.
type Vocabulary int

const (
	VocabGeneric Vocabulary = iota
	VocabAltas
	VocabEmision
	VocabPromedio
	VocabCollections
)

func (v Vocabulary) String() string {
	switch v {
	case VocabAltas:
		return "altas"
	case VocabEmision:
		return "emision"
	case VocabPromedio:
		return "promedio"
	case VocabCollections:
		return "recaudacion"
	default:
		return "generic"
	}
}

// pattern matches a lowercased column label. A match is discarded when not matches the text
// following it.
type pattern struct {
	re  *regexp.Regexp
	not *regexp.Regexp
}

func (p pattern) match(label string) bool {
	loc := p.re.FindStringIndex(label)
	if loc == nil {
		return false
	}
	return p.not == nil || !p.not.MatchString(label[loc[1]:])
}

func pat(expr string) pattern { return pattern{re: regexp.MustCompile(expr)} }

func patNot(expr, not string) pattern {
	return pattern{re: regexp.MustCompile(expr), not: regexp.MustCompile(not)}
}

// rule maps one canonical metric to its patterns, tried in order.
type rule struct {
	metric   string
	patterns []pattern
}

var (
	reAltas       = pat(`\baltas?\b`)
	reMontevideo  = pat(`\bmontevideo\b`)
	reInterior    = pat(`\binterior\b`)
	reBenefic     = pat(`beneficiari`)
	reBajas       = pat(`\bbajas?\b`)
	reTotalPlain  = pat(`\btotal\b`)
	reTotalPais   = pat(`\btotal\s+pa(í|i)s\b`)
	reMontoTotal  = []pattern{pat(`\bmonto`), patNot(`\bimporte`, `promedio`), patNot(`\btotal`, `promedio`)}
	reSuspension  = pat(`\bsuspensi(o|ó)n\b`)
	reFinContrato = pat(`fin.*contrato`)
)

var rules = map[Vocabulary][]rule{
	// Breakdowns come first so "Altas Montevideo" is not taken as the aggregate.
	VocabAltas: {
		{"altas_montevideo", []pattern{reMontevideo}},
		{"altas_interior", []pattern{reInterior}},
		{"altas_despido", []pattern{pat(`\bdespido\b`)}},
		{"altas_suspension", []pattern{reSuspension}},
		{"altas_fin_contrato", []pattern{reFinContrato}},
		{"altas", []pattern{reAltas}},
	},
	VocabEmision: {
		{"beneficiarios", []pattern{reBenefic}},
		{"altas", []pattern{reAltas}},
		{"bajas", []pattern{reBajas}},
	},
	VocabPromedio: {
		{"importe_promedio_montevideo", []pattern{reMontevideo}},
		{"importe_promedio_interior", []pattern{reInterior}},
		{"importe_promedio_total", []pattern{reTotalPlain}},
	},
	VocabGeneric: {
		{"beneficiarios", []pattern{reBenefic}},
		{"altas", []pattern{reAltas}},
		{"bajas", []pattern{reBajas}},
		{"monto_total", reMontoTotal},
	},
	VocabCollections: {
		{"recaudacion_privados", []pattern{pat(`\bprivados\b`)}},
		{"recaudacion_publicos", []pattern{pat(`\bp(ú|u)blicos\b`)}},
		{"recaudacion_total", []pattern{reTotalPais, reTotalPlain}},
	},
}

// totalTarget is where a column literally named "Total" goes under each vocabulary.
var totalTarget = map[Vocabulary]string{
	VocabAltas:    "altas",
	VocabEmision:  "beneficiarios",
	VocabPromedio: "importe_promedio_total",
}

// Schema lists the output columns of each document type in their fixed order.
var Schema = map[Document][]string{
	Unemployment: {
		"beneficiarios", "altas", "altas_montevideo", "altas_interior", "altas_despido",
		"altas_suspension", "altas_fin_contrato", "bajas", "monto_total",
		"importe_promedio_montevideo", "importe_promedio_interior", "importe_promedio_total",
	},
	Collections: {"recaudacion_privados", "recaudacion_publicos", "recaudacion_total"},
}

// Required lists the metrics a document must resolve in full. Unemployment only needs one
// metric of any kind.
var Required = map[Document][]string{
	Collections: {"recaudacion_privados", "recaudacion_publicos", "recaudacion_total"},
}

// SelectVocabulary picks the vocabulary for doc. Unemployment uses the sheet hint tokens
// "altas", "emisión"/"emision" and "promedio"; when the hint carries none of them (a neutral
// sheet name such as "Hoja1", or no hint at all) it looks for zone columns.
func SelectVocabulary(doc Document, hint string, columns []string) Vocabulary {
	if doc == Collections {
		return VocabCollections
	}
	h := strings.ToLower(hint)
	switch {
	case strings.Contains(h, "altas"):
		return VocabAltas
	case strings.Contains(h, "emisión"), strings.Contains(h, "emision"):
		return VocabEmision
	case strings.Contains(h, "promedio"):
		return VocabPromedio
	}
	zones, averages := false, false
	for _, c := range columns {
		l := strings.ToLower(c)
		if reMontevideo.match(l) || reInterior.match(l) {
			zones = true
		}
		if strings.Contains(l, "promedio") {
			averages = true
		}
	}
	switch {
	case zones && averages:
		return VocabPromedio
	case zones:
		return VocabAltas
	}
	return VocabGeneric
}
