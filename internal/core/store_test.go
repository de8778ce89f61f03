package core

import (
	"context"
	"errors"
	"sync"
)

// fakeStore is an in-memory SheetStore for tests.
type fakeStore struct {
	mu        sync.Mutex
	sheets    map[string][][]string
	appended  map[string][][]any
	readErr   error
	appendErr error
	reads     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sheets:   make(map[string][][]string),
		appended: make(map[string][][]any),
	}
}

func (f *fakeStore) set(sheet string, header []string, rows ...[]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sheets[sheet] = append([][]string{header}, rows...)
}

func (f *fakeStore) HeaderAndRows(_ context.Context, sheet string) ([]string, [][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.readErr != nil {
		return nil, nil, f.readErr
	}
	all, ok := f.sheets[sheet]
	if !ok {
		return nil, nil, errors.New("worksheet not found")
	}
	if len(all) == 0 {
		return nil, nil, nil
	}
	return all[0], all[1:], nil
}

func (f *fakeStore) AppendRow(_ context.Context, sheet string, values []any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended[sheet] = append(f.appended[sheet], values)
	return nil
}
