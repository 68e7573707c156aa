package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAndRecent(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()
	base := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	id, err := s.Record(ctx, Run{StartedAt: base, Document: "desempleo", URL: "https://x/iii_3.xls",
		Kind: "xls", Strategy: "native", Sheet: "Emisión", HeaderRow: 7, Rows: 120, Dropped: 2})
	if err != nil || id == "" {
		t.Fatalf("Record: %q %v", id, err)
	}
	if _, err := s.Record(ctx, Run{StartedAt: base.Add(time.Minute), Document: "recaudacion",
		URL: "https://x/ii.xls", HeaderRow: -1, Error: "no metrics found"}); err != nil {
		t.Fatalf("Record failed run: %v", err)
	}

	runs, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("runs = %d", len(runs))
	}
	if runs[0].Document != "recaudacion" || runs[0].Status != StatusFailed {
		t.Fatalf("newest run = %+v", runs[0])
	}
	if runs[1].ID != id || runs[1].Sheet != "Emisión" || runs[1].Status != StatusOK || !runs[1].StartedAt.Equal(base) {
		t.Fatalf("first run = %+v", runs[1])
	}

	one, _ := s.Recent(ctx, 1)
	if len(one) != 1 {
		t.Fatalf("limit ignored: %d", len(one))
	}
}
