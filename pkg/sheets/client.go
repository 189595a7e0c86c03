package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/angelmondragon/sheetsync-backend/pkg/config"
	"github.com/angelmondragon/sheetsync-backend/pkg/logger"
)

var (
	errSpreadsheetIDRequired = errors.New("sheets spreadsheet id is required")
	errCredentialsRequired   = errors.New("sheets credentials json or service account email + private key are required")
	errClientNotInitialized  = errors.New("sheets client not initialized")
)

// Client wraps the Google Sheets values API for a single spreadsheet.
type Client struct {
	svc           *sheets.Service
	spreadsheetID string
}

// NewClient creates a Sheets client authorized for spreadsheet read/write only.
func NewClient(ctx context.Context, cfg config.SheetsConfig, logg *logger.Logger) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errSpreadsheetIDRequired
	}

	opts, err := clientOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating sheets client: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "sheets client initialized")
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
	}, nil
}

func clientOptions(ctx context.Context, cfg config.SheetsConfig) ([]option.ClientOption, error) {
	if raw := strings.TrimSpace(cfg.CredentialsJSON); raw != "" {
		return []option.ClientOption{
			option.WithCredentialsJSON([]byte(raw)),
			option.WithScopes(sheets.SpreadsheetsScope),
		}, nil
	}

	email := strings.TrimSpace(cfg.ServiceAccountEmail)
	key := strings.TrimSpace(cfg.PrivateKey)
	if email == "" || key == "" {
		return nil, errCredentialsRequired
	}

	conf := &jwt.Config{
		Email: email,
		// Keys injected through env carry escaped newlines.
		PrivateKey: []byte(strings.ReplaceAll(key, `\n`, "\n")),
		Scopes:     []string{sheets.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}
	return []option.ClientOption{option.WithTokenSource(conf.TokenSource(ctx))}, nil
}

// SpreadsheetID reports the spreadsheet this client operates on.
func (c *Client) SpreadsheetID() string {
	if c == nil {
		return ""
	}
	return c.spreadsheetID
}

// GetValues reads all cell values in the given A1 range.
func (c *Client) GetValues(ctx context.Context, rng string) ([][]any, error) {
	if c == nil || c.svc == nil {
		return nil, errClientNotInitialized
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get values %q: %w", rng, err)
	}
	return resp.Values, nil
}

// AppendValues inserts rows after the last populated row of the range.
func (c *Client) AppendValues(ctx context.Context, rng string, rows [][]any) error {
	if c == nil || c.svc == nil {
		return errClientNotInitialized
	}
	body := &sheets.ValueRange{Values: rows}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, body).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append values %q: %w", rng, err)
	}
	return nil
}

// UpdateValues overwrites the cells of the given range, including blanking them.
func (c *Client) UpdateValues(ctx context.Context, rng string, rows [][]any) error {
	if c == nil || c.svc == nil {
		return errClientNotInitialized
	}
	body := &sheets.ValueRange{Values: rows}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, body).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update values %q: %w", rng, err)
	}
	return nil
}
