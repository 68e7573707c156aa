package parser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KaramelBytes/bpsloom-cli/internal/analysis"
)

// Strategy is one way of extracting a table from a document. Read offers candidate tables to
// the Reader and returns nil once the Reader has accepted one.
type Strategy interface {
	Name() string
	Read(ctx context.Context, src *Source, r *Reader) error
}

// chains lists the strategies tried for each content kind, in order. Workbook readers are
// never tried on markup or text.
var chains = map[ContentKind][]Strategy{
	KindXLSX:    {nativeStrategy{}, externalStrategy{}, htmlStrategy{}, domStrategy{}, delimitedStrategy{}},
	KindXLS:     {nativeStrategy{}, legacyStrategy{}, externalStrategy{}, htmlStrategy{}, domStrategy{}, delimitedStrategy{}},
	KindHTML:    {htmlStrategy{}, domStrategy{}},
	KindText:    {delimitedStrategy{}, htmlStrategy{}, domStrategy{}},
	KindUnknown: {delimitedStrategy{}, htmlStrategy{}, domStrategy{}},
}

// Chain returns the strategy names tried for kind.
func Chain(kind ContentKind) []string {
	var out []string
	for _, s := range chains[kind] {
		out = append(out, s.Name())
	}
	return out
}

// Reader runs the strategy chain over one Source. It keeps the attempt trail, the accepted
// table and the best weak candidate seen so far.
type Reader struct {
	src *Source
	opt Options
	log *slog.Logger

	strategy string
	accepted *analysis.Table
	best     *analysis.Table
	attempts []Attempt
}

// NewReader prepares a Reader for src.
func NewReader(src *Source, opt Options) *Reader {
	opt = opt.withDefaults()
	return &Reader{src: src, opt: opt, log: opt.Logger}
}

// ReadTable extracts the single best table from src.
func ReadTable(ctx context.Context, src *Source, opt Options) (*analysis.Table, error) {
	return NewReader(src, opt).Read(ctx)
}

// Attempts returns the failures recorded so far.
func (r *Reader) Attempts() []Attempt { return r.attempts }

// Options returns the effective options.
func (r *Reader) Options() Options { return r.opt }

// Read tries each applicable strategy in order and returns the first usable table. When none
// is usable, the best-scored candidate is returned if it clears the minimal floor.
func (r *Reader) Read(ctx context.Context) (*analysis.Table, error) {
	for _, st := range chains[r.src.Kind] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.strategy = st.Name()
		r.log.Debug("trying strategy", "strategy", st.Name(), "kind", r.src.Kind.String())
		err := st.Read(ctx, r.src, r)
		if r.accepted != nil {
			t := r.accepted
			r.log.Info("table extracted", "strategy", t.Strategy, "sheet", t.Sheet, "header_row", t.HeaderRow,
				"columns", t.Width(), "rows", len(t.Rows))
			return t, nil
		}
		if err == nil {
			err = errNotUsable
		}
		if err == errSkipped {
			r.log.Debug("strategy not applicable", "strategy", st.Name())
		} else {
			r.log.Warn("strategy failed", "strategy", st.Name(), "error", err)
		}
		r.fail("", err)
	}
	if r.best != nil && r.best.MeetsFloor() {
		r.log.Warn("no usable table; returning best candidate", "strategy", r.best.Strategy,
			"sheet", r.best.Sheet, "header_row", r.best.HeaderRow, "score", r.best.Score().String())
		return r.best, nil
	}
	return nil, &UnreadableFormatError{Kind: r.src.Kind, Attempts: r.attempts}
}

func (r *Reader) fail(detail string, err error) {
	r.attempts = append(r.attempts, Attempt{Strategy: r.strategy, Detail: detail, Err: err})
}

// offer submits a candidate. It is accepted when usable as is, or when header promotion turns
// it into a usable table; otherwise it competes for the weak fallback slot.
func (r *Reader) offer(t *analysis.Table, detail string) bool {
	if t == nil {
		return false
	}
	t.Strategy = r.strategy
	th := r.opt.UnnamedThreshold
	if t.Usable(th) {
		r.accepted = t
		return true
	}
	if t.LooksUnnamed(th) {
		if p := analysis.PromoteHeader(t, r.opt.PromoteMaxScan); p != nil && p.Usable(th) {
			r.log.Debug("header promoted", "strategy", r.strategy, "detail", detail, "header_row", p.HeaderRow)
			r.accepted = p
			return true
		}
	}
	r.keepBest(t)
	r.fail(detail, fmt.Errorf("%w (%s)", errNotUsable, t.Score()))
	return false
}

// accept takes t unconditionally when it has at least two columns.
func (r *Reader) accept(t *analysis.Table, detail string) bool {
	if r.offer(t, detail) {
		return true
	}
	if t != nil && t.Width() >= 2 && t.NonEmptyRows() >= 1 {
		r.accepted = t
		return true
	}
	return false
}

func (r *Reader) keepBest(t *analysis.Table) {
	if t.Width() < 2 {
		return
	}
	if r.best == nil || r.best.Score().Less(t.Score()) {
		r.best = t
	}
}
