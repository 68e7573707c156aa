package parser

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/KaramelBytes/bpsloom-cli/internal/analysis"
)

// Separators tried after auto-detection, in order.
var Separators = []rune{';', ',', '\t', '|'}

// delimitedStrategy reads the document as delimited text, first with the detected separator
// and then with each common one.
type delimitedStrategy struct{}

func (delimitedStrategy) Name() string { return "delimited" }

func (delimitedStrategy) Read(_ context.Context, src *Source, r *Reader) error {
	text := src.Text()
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("empty document")
	}
	if strings.ContainsRune(text, 0) {
		return fmt.Errorf("binary content is not delimited text")
	}
	seps := []rune{DetectSeparator(text)}
	for _, s := range Separators {
		if s != seps[0] {
			seps = append(seps, s)
		}
	}
	for _, sep := range seps {
		detail := fmt.Sprintf("sep=%q", sep)
		t, err := ReadDelimited(text, sep)
		if err != nil {
			r.fail(detail, err)
			continue
		}
		if r.accept(t, detail) {
			return nil
		}
	}
	return errNotUsable
}

// ReadDelimited parses text with sep. The header is the first record with two or more
// non-empty fields.
func ReadDelimited(text string, sep rune) (*analysis.Table, error) {
	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = sep
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	recs, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	grid := make([][]analysis.Cell, len(recs))
	for i, rec := range recs {
		grid[i] = analysis.TextCells(rec)
	}
	h := firstHeaderRow(grid)
	if h < 0 {
		return nil, fmt.Errorf("fewer than 2 fields on every line")
	}
	return analysis.FromGrid(grid, h)
}

// DetectSeparator picks the candidate that splits the first lines most consistently into
// more than one field. Ties go to the earlier candidate and ';' wins when nothing splits.
func DetectSeparator(text string) rune {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
		if len(lines) == 10 {
			break
		}
	}
	best, bestScore := Separators[0], 0
	for _, sep := range Separators {
		counts := map[int]int{}
		for _, l := range lines {
			if n := strings.Count(l, string(sep)); n > 0 {
				counts[n]++
			}
		}
		// lines agreeing on a field count dominate; more fields break ties
		score := 0
		for n, c := range counts {
			score = max(score, c*100+min(n, 99))
		}
		if score > bestScore {
			best, bestScore = sep, score
		}
	}
	return best
}
