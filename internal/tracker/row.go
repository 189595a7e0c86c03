package tracker

import "time"

// The sheet layout is positional: columns A..E hold
// (subscription id, email, name, created at, processed at).
// Append and clear must always cover the exact same span, otherwise a
// clear leaves stray cells behind.
const (
	RowWidth          = 5
	emailColumnOffset = 1
	firstColumn       = "A"
	lastColumn        = "E"
)

// Row is the single source of truth for the sheet's column order.
type Row struct {
	SubscriptionID string
	Email          string
	Name           string
	CreatedAt      time.Time
	ProcessedAt    time.Time
}

// Values serializes the row into the fixed positional tuple.
func (r Row) Values() []any {
	return []any{
		r.SubscriptionID,
		r.Email,
		r.Name,
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.ProcessedAt.UTC().Format(time.RFC3339),
	}
}

func blankValues() []any {
	values := make([]any, RowWidth)
	for i := range values {
		values[i] = ""
	}
	return values
}
