package core

import (
	"context"
	"fmt"
)

// SheetReader reads a whole sheet: the first row is the header.
type SheetReader interface {
	HeaderAndRows(ctx context.Context, sheet string) (header []string, rows [][]string, err error)
}

// SheetAppender appends one row to the end of a sheet.
type SheetAppender interface {
	AppendRow(ctx context.Context, sheet string, values []any) error
}

// SheetStore is a store that can both read and append.
type SheetStore interface {
	SheetReader
	SheetAppender
}

// MasterData is one snapshot of the master catalog sheet.
type MasterData struct {
	Sheet  string
	Header []string
	Rows   [][]string
}

// LoadMaster fetches the current master catalog. Every failure, including
// an empty sheet, is returned as an AccessError.
func LoadMaster(ctx context.Context, r SheetReader, sheet string) (MasterData, error) {
	header, rows, err := r.HeaderAndRows(ctx, sheet)
	if err != nil {
		return MasterData{}, NewAccessError("read", sheet, err)
	}
	if len(header) == 0 {
		return MasterData{}, &AccessError{Op: "read", Sheet: sheet, Err: ErrEmptySheet}
	}
	return MasterData{Sheet: sheet, Header: header, Rows: rows}, nil
}

// Schema resolves the master column layout for this snapshot.
func (m MasterData) Schema(syn SynonymSet) (MasterSchema, error) {
	s, err := ResolveMasterSchema(m.Sheet, m.Header, syn)
	if err != nil {
		return MasterSchema{}, fmt.Errorf("master schema: %w", err)
	}
	return s, nil
}
