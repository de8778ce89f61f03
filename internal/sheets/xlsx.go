package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/partbot/internal/core"
)

// lockRetry is how often a blocked caller retries the workbook lock.
const lockRetry = 50 * time.Millisecond

// Workbook stores sheets in a single .xlsx file.
//
// The file is opened per call so edits made in a spreadsheet program show
// up on the next read. A sibling .lock file serializes writers across
// processes; readers share it.
type Workbook struct {
	path string
	lock *flock.Flock
}

// NewWorkbook opens an existing workbook.
func NewWorkbook(path string) (*Workbook, error) {
	if path == "" {
		return nil, &core.ConfigurationError{Setting: "XLSX_PATH", Message: "required for the xlsx backend"}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, &core.ConfigurationError{Setting: "XLSX_PATH", Message: err.Error()}
	}
	return &Workbook{path: path, lock: flock.New(path + ".lock")}, nil
}

// CreateWorkbook writes a new workbook with one sheet per entry of headers.
// It refuses to overwrite an existing file.
func CreateWorkbook(path string, headers map[string][]string, order ...string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("create workbook: %s already exists", path)
	}
	if len(order) == 0 {
		for name := range headers {
			order = append(order, name)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	first := f.GetSheetName(0)
	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return fmt.Errorf("create workbook: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create workbook: %w", err)
		}
		row := make([]interface{}, len(headers[name]))
		for j, h := range headers[name] {
			row[j] = h
		}
		if err := f.SetSheetRow(name, "A1", &row); err != nil {
			return fmt.Errorf("create workbook: %w", err)
		}
	}
	return f.SaveAs(path)
}

func (w *Workbook) HeaderAndRows(ctx context.Context, sheet string) ([]string, [][]string, error) {
	locked, err := w.lock.TryRLockContext(ctx, lockRetry)
	if err != nil || !locked {
		return nil, nil, core.NewAccessError("read", sheet, lockError(err))
	}
	defer w.lock.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, nil, core.NewAccessError("read", sheet, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, core.NewAccessError("read", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	return rows[0], rows[1:], nil
}

// AppendRow writes values on the row after the last non-empty one.
func (w *Workbook) AppendRow(ctx context.Context, sheet string, values []any) error {
	locked, err := w.lock.TryLockContext(ctx, lockRetry)
	if err != nil || !locked {
		return core.NewAccessError("append", sheet, lockError(err))
	}
	defer w.lock.Unlock()

	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return core.NewAccessError("append", sheet, err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheet)
	if err != nil {
		return core.NewAccessError("append", sheet, err)
	}

	axis, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return core.NewAccessError("append", sheet, err)
	}
	row := make([]interface{}, len(values))
	copy(row, values)
	if err := f.SetSheetRow(sheet, axis, &row); err != nil {
		return core.NewAccessError("append", sheet, err)
	}
	if err := f.Save(); err != nil {
		return core.NewAccessError("append", sheet, fmt.Errorf("save workbook: %w", err))
	}
	return nil
}

// Close is a no-op; every call opens and closes the file itself.
func (w *Workbook) Close() error { return nil }

func lockError(err error) error {
	if err != nil {
		return fmt.Errorf("lock workbook: %w", err)
	}
	return errors.New("lock workbook: not acquired")
}
