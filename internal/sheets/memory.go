package sheets

import (
	"context"
	"fmt"
	"sync"

	"github.com/JonMunkholm/partbot/internal/core"
)

// Memory is an in-process workbook. It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	sheets map[string][][]string
}

// NewMemory returns an empty workbook.
func NewMemory() *Memory {
	return &Memory{sheets: make(map[string][][]string)}
}

// Put replaces a sheet's content. The first row is the header.
func (m *Memory) Put(sheet string, rows ...[]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([][]string, len(rows))
	for i, r := range rows {
		cp[i] = append([]string(nil), r...)
	}
	m.sheets[sheet] = cp
}

// Rows returns a copy of every row of a sheet, header included.
func (m *Memory) Rows(sheet string) [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.sheets[sheet]
	out := make([][]string, len(src))
	for i, r := range src {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func (m *Memory) HeaderAndRows(ctx context.Context, sheet string) ([]string, [][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, core.NewAccessError("read", sheet, err)
	}
	all, ok := m.lookup(sheet)
	if !ok {
		return nil, nil, core.NewAccessError("read", sheet, fmt.Errorf("worksheet %q not found", sheet))
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}

func (m *Memory) lookup(sheet string) ([][]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src, ok := m.sheets[sheet]
	if !ok {
		return nil, false
	}
	out := make([][]string, len(src))
	for i, r := range src {
		out[i] = append([]string(nil), r...)
	}
	return out, true
}

func (m *Memory) AppendRow(ctx context.Context, sheet string, values []any) error {
	if err := ctx.Err(); err != nil {
		return core.NewAccessError("append", sheet, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sheets[sheet]; !ok {
		return core.NewAccessError("append", sheet, fmt.Errorf("worksheet %q not found", sheet))
	}
	m.sheets[sheet] = append(m.sheets[sheet], toStrings(values))
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
