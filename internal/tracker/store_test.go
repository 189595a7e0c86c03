package tracker

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestStoreAppendContainsClearRoundTrip(t *testing.T) {
	ctx := context.Background()
	sheet := newFakeSheet()
	store := mustStore(t, sheet)

	row := Row{
		SubscriptionID: "sub_1",
		Email:          "a@x.com",
		Name:           "Ada",
		CreatedAt:      time.Unix(1700000000, 0),
	}
	if err := store.Append(ctx, row); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	present, err := store.ContainsEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("contains failed: %v", err)
	}
	if !present {
		t.Fatalf("expected a@x.com to be present after append")
	}

	cleared, err := store.ClearByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if !cleared {
		t.Fatalf("expected clear to find the row")
	}

	present, err = store.ContainsEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("contains after clear failed: %v", err)
	}
	if present {
		t.Fatalf("expected a@x.com to be absent after clear")
	}
}

func TestStoreClearMissingEmailIsNoOp(t *testing.T) {
	ctx := context.Background()
	sheet := newFakeSheet()
	store := mustStore(t, sheet)

	cleared, err := store.ClearByEmail(ctx, "ghost@x.com")
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if cleared {
		t.Fatalf("expected not-found for missing email")
	}
	if sheet.updates != 0 {
		t.Fatalf("expected zero mutations, got %d updates", sheet.updates)
	}
}

func TestStoreClearBlanksFullRowWidth(t *testing.T) {
	ctx := context.Background()
	sheet := newFakeSheet()
	store := mustStore(t, sheet)

	if err := store.Append(ctx, Row{SubscriptionID: "sub_1", Email: "a@x.com", Name: "Ada"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if _, err := store.ClearByEmail(ctx, "a@x.com"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	row := sheet.rows[0]
	if len(row) != RowWidth {
		t.Fatalf("expected cleared row width %d, got %d", RowWidth, len(row))
	}
	for i, cell := range row {
		if cell != "" {
			t.Fatalf("expected blank cell at offset %d, got %v", i, cell)
		}
	}
}

func TestStoreClearOnlyFirstMatch(t *testing.T) {
	ctx := context.Background()
	sheet := newFakeSheet()
	store := mustStore(t, sheet)

	for _, id := range []string{"sub_1", "sub_2"} {
		if err := store.Append(ctx, Row{SubscriptionID: id, Email: "dup@x.com"}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	if _, err := store.ClearByEmail(ctx, "dup@x.com"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	// The duplicate row from a concurrent append survives a single clear.
	present, err := store.ContainsEmail(ctx, "dup@x.com")
	if err != nil {
		t.Fatalf("contains failed: %v", err)
	}
	if !present {
		t.Fatalf("expected second duplicate row to remain")
	}
	if sheet.rows[1][0] != "sub_2" {
		t.Fatalf("expected sub_2 row untouched, got %v", sheet.rows[1])
	}
}

func TestStoreMatchIsExactAndCaseSensitive(t *testing.T) {
	ctx := context.Background()
	sheet := newFakeSheet()
	store := mustStore(t, sheet)

	if err := store.Append(ctx, Row{SubscriptionID: "sub_1", Email: "a@x.com"}); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	for _, probe := range []string{"A@x.com", " a@x.com", "a@x.com "} {
		present, err := store.ContainsEmail(ctx, probe)
		if err != nil {
			t.Fatalf("contains(%q) failed: %v", probe, err)
		}
		if present {
			t.Fatalf("expected %q not to match stored email", probe)
		}
	}
}

func TestRowValuesWidth(t *testing.T) {
	row := Row{SubscriptionID: "sub_1", Email: "a@x.com", Name: "Ada", CreatedAt: time.Now(), ProcessedAt: time.Now()}
	if got := len(row.Values()); got != RowWidth {
		t.Fatalf("expected %d values, got %d", RowWidth, got)
	}
	if got := len(blankValues()); got != RowWidth {
		t.Fatalf("expected %d blanks, got %d", RowWidth, got)
	}
}

func mustStore(t *testing.T, sheet *fakeSheet) *Store {
	t.Helper()
	store, err := NewStore(sheet, "Subscriptions")
	if err != nil {
		t.Fatalf("store setup: %v", err)
	}
	return store
}

// fakeSheet mimics the values API over an in-memory grid.
type fakeSheet struct {
	rows    [][]any
	updates int
}

func newFakeSheet() *fakeSheet {
	return &fakeSheet{}
}

func (f *fakeSheet) GetValues(ctx context.Context, rng string) ([][]any, error) {
	return f.rows, nil
}

func (f *fakeSheet) AppendValues(ctx context.Context, rng string, rows [][]any) error {
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeSheet) UpdateValues(ctx context.Context, rng string, rows [][]any) error {
	f.updates++
	rowNumber := parseRowNumber(rng)
	for i, row := range rows {
		idx := rowNumber - 1 + i
		if idx >= 0 && idx < len(f.rows) {
			f.rows[idx] = row
		}
	}
	return nil
}

// parseRowNumber extracts the first row index from a range like "Tab!A3:E3".
func parseRowNumber(rng string) int {
	if idx := strings.Index(rng, "!"); idx >= 0 {
		rng = rng[idx+1:]
	}
	if idx := strings.Index(rng, ":"); idx >= 0 {
		rng = rng[:idx]
	}
	n := 0
	for _, r := range rng {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
		}
	}
	return n
}
