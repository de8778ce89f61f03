package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/partbot/internal/config"
	"github.com/JonMunkholm/partbot/internal/core"
	"github.com/JonMunkholm/partbot/internal/sheets"
)

const (
	masterSheet = "Sparepart"
	ledgerSheet = "TransaksiGudang"
)

type fixedSessions int

func (n fixedSessions) Active() int { return int(n) }

type fixedQueue int

func (n fixedQueue) Pending() int { return int(n) }

func newTestServer(t *testing.T, mutate func(*config.Config, *Deps)) (*Server, *sheets.Memory) {
	t.Helper()

	mem := sheets.NewMemory()
	mem.Put(masterSheet,
		[]string{"PartID", "NamaPart", "KodeLokasi", "Rak", "Nomor", "Visual"},
		[]string{"ABC-001", "Bearing 6204", "GD-A", "3", "7", ""},
		[]string{"ABC-002", "Bearing 6205", "GD-A", "", "12", ""},
		[]string{"V-100", "V-Belt A45", "GD-B", "1", "", "https://example.test/v.jpg"},
	)
	mem.Put(ledgerSheet, []string{"Timestamp", "PartID", "Jenis", "Jumlah", "Kondisi", "UserID", "Tujuan/Penggunaan"})

	syn := core.DefaultSynonyms()
	cfg := &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
	}
	deps := Deps{
		Resolver: core.NewResolver(mem, masterSheet, syn.Master),
		Searcher: core.NewSearcher(mem, masterSheet, syn.Master),
		Ledger:   core.NewLedger(mem, core.LedgerConfig{Sheet: ledgerSheet, Synonyms: syn.Ledger}),
	}
	if mutate != nil {
		mutate(cfg, &deps)
	}

	s := NewServer(cfg, deps)
	t.Cleanup(func() { _ = s.Shutdown(t.Context()) })
	return s, mem
}

func get(t *testing.T, s *Server, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, func(_ *config.Config, d *Deps) {
		d.Sessions = fixedSessions(3)
		d.Updates = fixedQueue(2)
		d.Limiter = sheets.NewLimiter(4, time.Second)
	})

	rec := get(t, s, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody[healthResponse](t, rec)
	if body.Status != "ok" || body.Sessions != 3 || body.PendingUpdates != 2 {
		t.Errorf("body = %+v", body)
	}
	if body.Store == nil || body.Store.MaxConcurrent != 4 || body.Store.Available != 4 {
		t.Errorf("store = %+v", body.Store)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
}

func TestSearch(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		name    string
		target  string
		status  int
		total   int
		results int
	}{
		{"two matches", "/api/parts/search?q=bearing", http.StatusOK, 2, 2},
		{"limit", "/api/parts/search?q=bearing&limit=1", http.StatusOK, 2, 1},
		{"no match", "/api/parts/search?q=zz", http.StatusOK, 0, 0},
		{"too short", "/api/parts/search?q=b", http.StatusBadRequest, 0, 0},
		{"blank", "/api/parts/search?q=%20%20", http.StatusBadRequest, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.target)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status != http.StatusOK {
				if body := decodeBody[ErrorResponse](t, rec); body.Code != "VAL010" {
					t.Errorf("code = %q", body.Code)
				}
				return
			}
			body := decodeBody[searchResponse](t, rec)
			if body.Total != tt.total || len(body.Results) != tt.results {
				t.Errorf("total = %d, results = %d", body.Total, len(body.Results))
			}
		})
	}
}

func TestSearch_Record(t *testing.T) {
	s, _ := newTestServer(t, nil)

	body := decodeBody[searchResponse](t, get(t, s, "/api/parts/search?q=v-belt"))
	if len(body.Results) != 1 {
		t.Fatalf("results = %+v", body.Results)
	}
	p := body.Results[0]
	if p.ID != "V-100" || p.Name != "V-Belt A45" || p.Visual != "https://example.test/v.jpg" {
		t.Errorf("part = %+v", p)
	}
	for _, loc := range p.Location {
		if loc.Value == "" {
			t.Errorf("blank location cell in %+v", p.Location)
		}
	}
}

func TestSearch_StoreFailure(t *testing.T) {
	s, _ := newTestServer(t, func(_ *config.Config, d *Deps) {
		empty := sheets.NewMemory()
		d.Searcher = core.NewSearcher(empty, masterSheet, core.DefaultSynonyms().Master)
	})

	rec := get(t, s, "/api/parts/search?q=bearing")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	body := decodeBody[ErrorResponse](t, rec)
	if body.Code == "" || body.Message == "" || body.RequestID == "" {
		t.Errorf("body = %+v", body)
	}
}

func TestResolve(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		name    string
		q       string
		outcome string
		check   func(t *testing.T, r resolveResponse)
	}{
		{"identifier", "abc001", "resolved", func(t *testing.T, r resolveResponse) {
			if r.PartID != "ABC-001" || r.Name != "Bearing 6204" {
				t.Errorf("resolved = %+v", r)
			}
		}},
		{"unique name", "v-belt", "resolved", func(t *testing.T, r resolveResponse) {
			if r.PartID != "V-100" {
				t.Errorf("resolved = %+v", r)
			}
		}},
		{"ambiguous name", "bearing", "ambiguous", func(t *testing.T, r resolveResponse) {
			if len(r.Candidates) != 2 || r.Candidates[0].ID != "ABC-001" {
				t.Errorf("candidates = %+v", r.Candidates)
			}
		}},
		{"unknown", "gearbox", "lenient", func(t *testing.T, r resolveResponse) {
			if r.Raw != "gearbox" || r.Reason != core.ReasonNotInMaster {
				t.Errorf("lenient = %+v", r)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, "/api/parts/resolve?q="+tt.q)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			body := decodeBody[resolveResponse](t, rec)
			if body.Outcome != tt.outcome {
				t.Fatalf("outcome = %q, want %q", body.Outcome, tt.outcome)
			}
			tt.check(t, body)
		})
	}
}

func TestSchemaEndpoints(t *testing.T) {
	s, mem := newTestServer(t, nil)

	rec := get(t, s, "/api/schema/ledger")
	if rec.Code != http.StatusOK {
		t.Fatalf("ledger status = %d", rec.Code)
	}
	ledger := decodeBody[ledgerSchemaResponse](t, rec)
	if ledger.Sheet != ledgerSheet || ledger.Columns[core.FieldPurpose] != 6 {
		t.Errorf("ledger = %+v", ledger)
	}

	rec = get(t, s, "/api/schema/master")
	if rec.Code != http.StatusOK {
		t.Fatalf("master status = %d", rec.Code)
	}
	master := decodeBody[masterSchemaResponse](t, rec)
	if master.ID != 0 || master.Name != 1 {
		t.Errorf("master = %+v", master)
	}

	mem.Put(ledgerSheet, []string{"Timestamp", "PartID"})
	rec = get(t, s, "/api/schema/ledger")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("broken ledger status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	body := decodeBody[ErrorResponse](t, rec)
	if body.Code != "SCH001" {
		t.Errorf("code = %q, want SCH001", body.Code)
	}
	if body.Detail != "jenis, jumlah, kondisi, userid, tujuan" {
		t.Errorf("detail = %q", body.Detail)
	}
}

func TestAPIKey(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config, _ *Deps) {
		c.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}}
	})

	tests := []struct {
		name   string
		header []string
		want   int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", []string{"X-API-Key", "nope"}, http.StatusForbidden},
		{"header", []string{"X-API-Key", "k2"}, http.StatusOK},
		{"bearer", []string{"Authorization", "Bearer k1"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, "/api/parts/resolve?q=abc001", tt.header...)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	if rec := get(t, s, "/healthz"); rec.Code != http.StatusOK {
		t.Errorf("healthz needs no key, got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config, _ *Deps) {
		c.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	})

	for i := 0; i < 2; i++ {
		if rec := get(t, s, "/api/parts/resolve?q=abc001"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := get(t, s, "/api/parts/resolve?q=abc001")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestWebhookRoute(t *testing.T) {
	called := false
	s, _ := newTestServer(t, func(_ *config.Config, d *Deps) {
		d.Webhook = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		})
	})

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !called {
		t.Errorf("status = %d, called = %v", rec.Code, called)
	}

	if rec := get(t, s, "/telegram/webhook"); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &core.ValidationError{Field: core.FieldQuantity, Message: "bad"}, http.StatusBadRequest},
		{"busy", core.NewAccessError("read", "S", core.ErrBusy), http.StatusServiceUnavailable},
		{"schema", &core.SchemaError{Sheet: "S", Missing: []core.Field{core.FieldPartID}}, http.StatusUnprocessableEntity},
		{"access", core.NewAccessError("append", "S", core.ErrEmptySheet), http.StatusBadGateway},
		{"config", &core.ConfigurationError{}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor = %d, want %d", got, tt.want)
			}
		})
	}
}
