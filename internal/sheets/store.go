// Package sheets provides the spreadsheet-shaped stores the bot reads its
// part catalog from and appends movement rows to.
//
// Every backend models a workbook of named sheets whose first row is the
// header. Reads always return the current content; nothing is cached.
// Every error a backend returns is a *core.AccessError.
//
// Backends:
//   - Google Sheets ([NewGoogle]), the production store.
//   - An .xlsx workbook on disk ([NewWorkbook]), guarded by a file lock.
//   - PostgreSQL ([NewPostgres]), one JSONB row per sheet line.
//   - In memory ([NewMemory]), for tests and local runs.
//
// [Limited] wraps any of them to cap concurrent calls and bound each call
// with a timeout.
package sheets

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/partbot/internal/config"
	"github.com/JonMunkholm/partbot/internal/core"
)

// Store is a closable sheet store.
type Store interface {
	core.SheetStore
	Close() error
}

// Open builds the backend selected by cfg and wraps it in a Limited.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		backend Store
		err     error
	)

	switch cfg.Backend {
	case config.BackendSheets:
		backend, err = NewGoogle(ctx, GoogleConfig{
			SpreadsheetID:   cfg.SpreadsheetID,
			CredentialsJSON: cfg.CredentialsJSON,
			CredentialsFile: cfg.CredentialsFile,
		})
	case config.BackendXLSX:
		backend, err = NewWorkbook(cfg.XLSXPath)
	case config.BackendPostgres:
		backend, err = NewPostgres(ctx, cfg.DatabaseURL, int32(cfg.MaxConns))
	case config.BackendMemory:
		backend = NewMemory()
	default:
		return nil, &core.ConfigurationError{Setting: "STORE_BACKEND", Message: fmt.Sprintf("unknown backend %q", cfg.Backend)}
	}
	if err != nil {
		return nil, err
	}

	return NewLimited(backend, NewLimiter(cfg.MaxConcurrent, cfg.MaxWait), cfg.CallTimeout), nil
}

// toStrings renders appended values the way a spreadsheet displays them.
func toStrings(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case nil:
			out[i] = ""
		case string:
			out[i] = x
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}
