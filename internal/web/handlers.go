package web

import (
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/partbot/internal/core"
	"github.com/JonMunkholm/partbot/internal/sheets"
)

// minQueryLength matches the chat bot's search minimum.
const minQueryLength = 2

type healthResponse struct {
	Status         string               `json:"status"`
	Sessions       int                  `json:"sessions"`
	PendingUpdates int                  `json:"pending_updates"`
	Store          *sheets.LimiterStatus `json:"store,omitempty"`
}

// handleHealth reports liveness without touching the store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.deps.Sessions != nil {
		resp.Sessions = s.deps.Sessions.Active()
	}
	if s.deps.Updates != nil {
		resp.PendingUpdates = s.deps.Updates.Pending()
	}
	if s.deps.Limiter != nil {
		st := s.deps.Limiter.Status()
		resp.Store = &st
	}
	writeJSON(w, r, http.StatusOK, resp)
}

type ledgerSchemaResponse struct {
	Sheet   string             `json:"sheet"`
	Header  []string           `json:"header"`
	Columns map[core.Field]int `json:"columns"`
}

func (s *Server) handleLedgerSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.deps.Ledger.Schema(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, ledgerSchemaResponse{
		Sheet:   s.deps.Ledger.Sheet(),
		Header:  schema.Header,
		Columns: schema.Index,
	})
}

// masterSchemaResponse uses -1 for columns that did not resolve.
type masterSchemaResponse struct {
	Header   []string `json:"header"`
	ID       int      `json:"part_id"`
	Name     int      `json:"name"`
	Location []int    `json:"location"`
	Primary  int      `json:"primary_location"`
	Bin      int      `json:"bin"`
	Visual   int      `json:"visual"`
}

func (s *Server) handleMasterSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := s.deps.Searcher.Schema(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	loc := schema.Location
	if loc == nil {
		loc = []int{}
	}
	writeJSON(w, r, http.StatusOK, masterSchemaResponse{
		Header:   schema.Header,
		ID:       schema.ID,
		Name:     schema.Name,
		Location: loc,
		Primary:  schema.Primary,
		Bin:      schema.Bin,
		Visual:   schema.Visual,
	})
}

type locationJSON struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Role  string `json:"role"`
}

type partJSON struct {
	ID       string         `json:"part_id"`
	Name     string         `json:"name"`
	Location []locationJSON `json:"location"`
	Visual   string         `json:"visual,omitempty"`
}

type searchResponse struct {
	Query   string     `json:"query"`
	Total   int        `json:"total"`
	Results []partJSON `json:"results"`
}

// handleSearch runs a catalog search. limit caps the returned list at
// core.MaxSearchCache; total counts every match.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if utf8.RuneCountInString(q) < minQueryLength {
		writeError(w, r, http.StatusBadRequest, "VAL010",
			"query must be at least "+strconv.Itoa(minQueryLength)+" characters")
		return
	}
	limit := parseIntParam(r, "limit", core.MaxSearchCache)
	if limit > core.MaxSearchCache {
		limit = core.MaxSearchCache
	}

	results, err := s.deps.Searcher.Search(r.Context(), q)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resp := searchResponse{Query: q, Total: len(results), Results: []partJSON{}}
	for i, rec := range results {
		if i == limit {
			break
		}
		resp.Results = append(resp.Results, toPartJSON(rec))
	}
	writeJSON(w, r, http.StatusOK, resp)
}

type candidateJSON struct {
	ID   string `json:"part_id"`
	Name string `json:"name"`
}

type resolveResponse struct {
	Outcome    string          `json:"outcome"`
	PartID     string          `json:"part_id,omitempty"`
	Name       string          `json:"name,omitempty"`
	Candidates []candidateJSON `json:"candidates,omitempty"`
	Raw        string          `json:"raw,omitempty"`
	Reason     string          `json:"reason,omitempty"`
}

// handleResolve reports how chat input q would resolve. It never fails:
// an unreadable catalog shows up as a lenient outcome.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	var resp resolveResponse
	switch res := s.deps.Resolver.Resolve(r.Context(), q).(type) {
	case core.Resolved:
		resp = resolveResponse{Outcome: "resolved", PartID: res.ID, Name: res.Name}
	case core.Ambiguous:
		resp = resolveResponse{Outcome: "ambiguous"}
		for _, c := range res.Candidates {
			resp.Candidates = append(resp.Candidates, candidateJSON{ID: c.ID, Name: c.Name})
		}
	case core.Lenient:
		resp = resolveResponse{Outcome: "lenient", Raw: res.Raw, Reason: res.Reason}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func toPartJSON(rec core.PartRecord) partJSON {
	p := partJSON{ID: rec.ID, Name: rec.Name, Visual: rec.Visual, Location: []locationJSON{}}
	for _, f := range rec.Location {
		p.Location = append(p.Location, locationJSON{
			Label: f.Label,
			Value: f.Value,
			Role:  roleName(f.Role),
		})
	}
	return p
}

func roleName(role core.LocationRole) string {
	switch role {
	case core.LocationPrimary:
		return "primary"
	case core.LocationBin:
		return "bin"
	}
	return "detail"
}

// parseIntParam parses a positive integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
