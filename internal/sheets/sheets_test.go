package sheets

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/partbot/internal/core"
)

var ledgerHeader = []string{"Timestamp", "PartID", "Jenis", "Jumlah", "Kondisi", "UserID", "Tujuan"}

func TestMemory_HeaderAndRows(t *testing.T) {
	m := NewMemory()
	m.Put("Sparepart",
		[]string{"PartID", "Nama"},
		[]string{"ABC-001", "Bearing 6204"},
	)
	m.Put("Kosong")

	header, rows, err := m.HeaderAndRows(context.Background(), "Sparepart")
	if err != nil {
		t.Fatalf("HeaderAndRows() error = %v", err)
	}
	if !reflect.DeepEqual(header, []string{"PartID", "Nama"}) {
		t.Errorf("header = %v", header)
	}
	if len(rows) != 1 || rows[0][0] != "ABC-001" {
		t.Errorf("rows = %v", rows)
	}

	header, rows, err = m.HeaderAndRows(context.Background(), "Kosong")
	if err != nil || header != nil || rows != nil {
		t.Errorf("empty sheet = %v, %v, %v", header, rows, err)
	}

	_, _, err = m.HeaderAndRows(context.Background(), "Nope")
	var ae *core.AccessError
	if !errors.As(err, &ae) || ae.Op != "read" {
		t.Errorf("missing sheet error = %v, want read AccessError", err)
	}
}

func TestMemory_AppendRow(t *testing.T) {
	m := NewMemory()
	m.Put("TransaksiGudang", ledgerHeader)

	row := []any{"03/05/24 08:02:03", "ABC-001", "Out", 3, "Used", "1001", ""}
	if err := m.AppendRow(context.Background(), "TransaksiGudang", row); err != nil {
		t.Fatalf("AppendRow() error = %v", err)
	}

	got := m.Rows("TransaksiGudang")
	want := []string{"03/05/24 08:02:03", "ABC-001", "Out", "3", "Used", "1001", ""}
	if len(got) != 2 || !reflect.DeepEqual(got[1], want) {
		t.Errorf("rows = %v, want header plus %v", got, want)
	}

	err := m.AppendRow(context.Background(), "Nope", row)
	var ae *core.AccessError
	if !errors.As(err, &ae) || ae.Op != "append" {
		t.Errorf("missing sheet error = %v, want append AccessError", err)
	}
}

func TestWorkbook_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gudang.xlsx")
	err := CreateWorkbook(path, map[string][]string{
		"TransaksiGudang": ledgerHeader,
		"Sparepart":       {"PartID", "Nama Barang", "Lokasi"},
	}, "TransaksiGudang", "Sparepart")
	if err != nil {
		t.Fatalf("CreateWorkbook() error = %v", err)
	}

	wb, err := NewWorkbook(path)
	if err != nil {
		t.Fatalf("NewWorkbook() error = %v", err)
	}
	ctx := context.Background()

	header, rows, err := wb.HeaderAndRows(ctx, "TransaksiGudang")
	if err != nil {
		t.Fatalf("HeaderAndRows() error = %v", err)
	}
	if !reflect.DeepEqual(header, ledgerHeader) || len(rows) != 0 {
		t.Fatalf("fresh ledger = %v, %v", header, rows)
	}

	for _, qty := range []int{3, 7} {
		row := []any{"03/05/24 08:02:03", "ABC-001", "In", qty, "Baru", "1001", "stok"}
		if err := wb.AppendRow(ctx, "TransaksiGudang", row); err != nil {
			t.Fatalf("AppendRow() error = %v", err)
		}
	}

	_, rows, err = wb.HeaderAndRows(ctx, "TransaksiGudang")
	if err != nil {
		t.Fatalf("HeaderAndRows() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0][3] != "3" || rows[1][3] != "7" || rows[1][6] != "stok" {
		t.Errorf("rows = %v", rows)
	}

	if err := CreateWorkbook(path, nil); err == nil {
		t.Error("CreateWorkbook() should refuse to overwrite")
	}
}

func TestWorkbook_MissingSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gudang.xlsx")
	if err := CreateWorkbook(path, map[string][]string{"Sparepart": {"PartID"}}); err != nil {
		t.Fatal(err)
	}
	wb, err := NewWorkbook(path)
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = wb.HeaderAndRows(context.Background(), "TransaksiGudang")
	var ae *core.AccessError
	if !errors.As(err, &ae) {
		t.Errorf("error = %v, want AccessError", err)
	}
}

func TestNewWorkbook_Missing(t *testing.T) {
	_, err := NewWorkbook(filepath.Join(t.TempDir(), "nope.xlsx"))
	var ce *core.ConfigurationError
	if !errors.As(err, &ce) || ce.Setting != "XLSX_PATH" {
		t.Errorf("error = %v, want XLSX_PATH ConfigurationError", err)
	}
}

func TestQuoteSheet(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"TransaksiGudang", "'TransaksiGudang'"},
		{"Gudang Utama", "'Gudang Utama'"},
		{"Budi's", "'Budi''s'"},
	}
	for _, tt := range tests {
		if got := quoteSheet(tt.in); got != tt.want {
			t.Errorf("quoteSheet(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToStrings(t *testing.T) {
	got := toStrings([]any{"a", 3, nil, 2.5, true})
	want := []string{"a", "3", "", "2.5", "true"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("toStrings() = %v, want %v", got, want)
	}
}

func TestLimiter_AcquireRelease(t *testing.T) {
	limiter := NewLimiter(2, time.Second)
	ctx := context.Background()

	if got := limiter.Available(); got != 2 {
		t.Errorf("initial Available = %d, want 2", got)
	}
	for i := 0; i < 2; i++ {
		if err := limiter.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}
	if got := limiter.ActiveCount(); got != 2 {
		t.Errorf("ActiveCount = %d, want 2", got)
	}
	if limiter.TryAcquire() {
		t.Error("TryAcquire should fail when full")
	}

	limiter.Release()
	limiter.Release()

	st := limiter.Status()
	if st.Active != 0 || st.Available != 2 || st.MaxConcurrent != 2 {
		t.Errorf("Status = %+v", st)
	}
}

func TestLimiter_BusyWhenFull(t *testing.T) {
	limiter := NewLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	defer limiter.Release()

	if err := limiter.Acquire(ctx); !errors.Is(err, core.ErrBusy) {
		t.Errorf("Acquire() = %v, want ErrBusy", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := limiter.Acquire(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire(cancelled) = %v, want context.Canceled", err)
	}
}

func TestLimiter_FreeSlot(t *testing.T) {
	limiter := NewLimiter(1, time.Hour)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Acquire(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire(cancelled) = %v, want context.Canceled", err)
	}
	if got := limiter.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after cancelled Acquire = %d, want 0", got)
	}

	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() = %v", err)
	}
	if limiter.TryAcquire() {
		t.Error("TryAcquire took a second slot")
	}
	limiter.Release()
	if !limiter.TryAcquire() {
		t.Error("TryAcquire failed on a free slot")
	}
	limiter.Release()
}

func TestLimiter_WaitForDrain(t *testing.T) {
	limiter := NewLimiter(1, time.Second)
	if err := limiter.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(30 * time.Millisecond)
		limiter.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := limiter.WaitForDrain(ctx); err != nil {
		t.Errorf("WaitForDrain() = %v", err)
	}
	wg.Wait()
}

// slowStore blocks every call until release is closed.
type slowStore struct {
	*Memory
	release chan struct{}
}

func (s *slowStore) HeaderAndRows(ctx context.Context, sheet string) ([]string, [][]string, error) {
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, nil, core.NewAccessError("read", sheet, ctx.Err())
	}
	return s.Memory.HeaderAndRows(ctx, sheet)
}

func TestLimited_BusyIsAccessError(t *testing.T) {
	mem := NewMemory()
	mem.Put("Sparepart", []string{"PartID"})
	slow := &slowStore{Memory: mem, release: make(chan struct{})}
	store := NewLimited(slow, NewLimiter(1, 30*time.Millisecond), 0)

	done := make(chan error, 1)
	go func() {
		_, _, err := store.HeaderAndRows(context.Background(), "Sparepart")
		done <- err
	}()

	// Wait until the first call holds the only slot.
	deadline := time.Now().Add(time.Second)
	for store.Limiter().ActiveCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	_, _, err := store.HeaderAndRows(context.Background(), "Sparepart")
	var ae *core.AccessError
	if !errors.As(err, &ae) || !errors.Is(err, core.ErrBusy) {
		t.Errorf("second call error = %v, want AccessError wrapping ErrBusy", err)
	}

	close(slow.release)
	if err := <-done; err != nil {
		t.Errorf("first call error = %v", err)
	}
}

func TestLimited_CallTimeout(t *testing.T) {
	mem := NewMemory()
	mem.Put("Sparepart", []string{"PartID"})
	slow := &slowStore{Memory: mem, release: make(chan struct{})}
	store := NewLimited(slow, NewLimiter(1, time.Second), 20*time.Millisecond)

	_, _, err := store.HeaderAndRows(context.Background(), "Sparepart")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
	if got := store.Limiter().ActiveCount(); got != 0 {
		t.Errorf("slot leaked, ActiveCount = %d", got)
	}
}
