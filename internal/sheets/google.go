package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/JonMunkholm/partbot/internal/core"
)

// GoogleConfig identifies a spreadsheet and the service account that can
// edit it. Exactly one of CredentialsJSON or CredentialsFile is used;
// CredentialsJSON wins when both are set.
type GoogleConfig struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
}

// Google reads and appends through the Sheets v4 values API.
type Google struct {
	srv *gsheets.Service
	id  string
}

// NewGoogle authenticates with a service account.
func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	if cfg.SpreadsheetID == "" {
		return nil, &core.ConfigurationError{Setting: "SPREADSHEET_ID", Message: "required for the sheets backend"}
	}

	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil, &core.ConfigurationError{
			Setting: "GCP_SERVICE_ACCOUNT_JSON",
			Message: "service account credentials are required for the sheets backend",
		}
	}

	srv, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, &core.ConfigurationError{Setting: "GCP_SERVICE_ACCOUNT_JSON", Message: err.Error()}
	}
	return &Google{srv: srv, id: cfg.SpreadsheetID}, nil
}

func (g *Google) HeaderAndRows(ctx context.Context, sheet string) ([]string, [][]string, error) {
	resp, err := g.srv.Spreadsheets.Values.Get(g.id, quoteSheet(sheet)).Context(ctx).Do()
	if err != nil {
		return nil, nil, core.NewAccessError("read", sheet, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil, nil
	}

	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		rows[i] = toStrings(r)
	}
	return rows[0], rows[1:], nil
}

// AppendRow adds one row after the last data row. Values are entered as if
// typed, so numbers and dates keep the sheet's own formatting.
func (g *Google) AppendRow(ctx context.Context, sheet string, values []any) error {
	vr := &gsheets.ValueRange{Values: [][]interface{}{values}}
	_, err := g.srv.Spreadsheets.Values.Append(g.id, quoteSheet(sheet), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return core.NewAccessError("append", sheet, fmt.Errorf("append row: %w", err))
	}
	return nil
}

// Close is a no-op; the HTTP client is shared.
func (g *Google) Close() error { return nil }

// quoteSheet turns a sheet title into an A1 range covering the whole sheet.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
