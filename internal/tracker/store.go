package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/angelmondragon/sheetsync-backend/pkg/errors"
)

// ValuesAPI is the range-addressed surface of the spreadsheet backend.
type ValuesAPI interface {
	GetValues(ctx context.Context, rng string) ([][]any, error)
	AppendValues(ctx context.Context, rng string, rows [][]any) error
	UpdateValues(ctx context.Context, rng string, rows [][]any) error
}

// Store tracks one row per entitled customer on a single sheet tab.
//
// Membership is recomputed from a full column scan on every call; the
// sheet is the sole source of truth and nothing is cached in memory.
type Store struct {
	values    ValuesAPI
	sheetName string
}

func NewStore(values ValuesAPI, sheetName string) (*Store, error) {
	if values == nil {
		return nil, errors.New("values api is required")
	}
	if sheetName == "" {
		return nil, errors.New("sheet name is required")
	}
	return &Store{values: values, sheetName: sheetName}, nil
}

// ContainsEmail reports whether any row's email cell equals the given
// email. Exact, case-sensitive string equality; callers normalize.
func (s *Store) ContainsEmail(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, errors.New("email is required")
	}
	rows, err := s.values.GetValues(ctx, s.rowSpanRange())
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan email column")
	}
	return findRowByEmail(rows, email) > 0, nil
}

// Append writes the row at the next free position, stamping the
// processed-at column if the caller left it unset.
func (s *Store) Append(ctx context.Context, row Row) error {
	if row.Email == "" {
		return errors.New("email is required")
	}
	if row.ProcessedAt.IsZero() {
		row.ProcessedAt = time.Now()
	}
	if err := s.values.AppendValues(ctx, s.rowSpanRange(), [][]any{row.Values()}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append sheet row")
	}
	return nil
}

// ClearByEmail blanks the first row whose email cell matches and reports
// whether a row was found. The row itself is never deleted; blanking the
// cells also removes the email from membership scans.
func (s *Store) ClearByEmail(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, errors.New("email is required")
	}
	rows, err := s.values.GetValues(ctx, s.rowSpanRange())
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan sheet rows")
	}
	rowNumber := findRowByEmail(rows, email)
	if rowNumber == 0 {
		return false, nil
	}
	if err := s.values.UpdateValues(ctx, s.rowRange(rowNumber), [][]any{blankValues()}); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear sheet row")
	}
	return true, nil
}

// findRowByEmail returns the 1-based sheet row of the first match, 0 if absent.
func findRowByEmail(rows [][]any, email string) int {
	for i, row := range rows {
		if len(row) <= emailColumnOffset {
			continue
		}
		if cell, ok := row[emailColumnOffset].(string); ok && cell == email {
			return i + 1
		}
	}
	return 0
}

func (s *Store) rowSpanRange() string {
	return fmt.Sprintf("%s!%s:%s", s.sheetName, firstColumn, lastColumn)
}

func (s *Store) rowRange(rowNumber int) string {
	return fmt.Sprintf("%s!%s%d:%s%d", s.sheetName, firstColumn, rowNumber, lastColumn, rowNumber)
}
