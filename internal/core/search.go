package core

import (
	"context"
	"fmt"
	"strings"
)

// Presentation caps. Search itself is unbounded; anything that offers
// results as choices shows at most MaxChoiceButtons and remembers at most
// MaxSearchCache of them.
const (
	MaxChoiceButtons = 10
	MaxSearchCache   = 50
)

// LocationRole marks how a location column is displayed.
type LocationRole int

const (
	LocationDetail LocationRole = iota
	LocationPrimary
	LocationBin
)

// LocationField is one non-blank location cell, labelled with the header
// text as written in the sheet.
type LocationField struct {
	Label string
	Value string
	Role  LocationRole
}

// PartRecord is a display view of one master row.
type PartRecord struct {
	ID       string
	Name     string
	Location []LocationField
	Visual   string
}

// Search returns every master row whose identifier or name contains query
// (case-insensitive), in sheet order. A blank query matches nothing.
func Search(query string, master MasterData, syn SynonymSet) ([]PartRecord, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}

	schema, err := master.Schema(syn)
	if err != nil {
		return nil, err
	}

	var out []PartRecord
	for _, row := range master.Rows {
		id := cell(row, schema.ID)
		name := cell(row, schema.Name)
		if !strings.Contains(strings.ToLower(id), q) && !strings.Contains(strings.ToLower(name), q) {
			continue
		}
		out = append(out, buildRecord(row, schema, id, name))
	}
	return out, nil
}

func buildRecord(row []string, schema MasterSchema, id, name string) PartRecord {
	rec := PartRecord{
		ID:     id,
		Name:   name,
		Visual: cell(row, schema.Visual),
	}
	for _, i := range schema.Location {
		v := cell(row, i)
		if v == "" {
			continue
		}
		role := LocationDetail
		switch i {
		case schema.Primary:
			role = LocationPrimary
		case schema.Bin:
			role = LocationBin
		}
		rec.Location = append(rec.Location, LocationField{
			Label: schema.Header[i],
			Value: v,
			Role:  role,
		})
	}
	return rec
}

// Searcher searches the live master catalog. Unlike Resolver it propagates
// read failures so the caller can report them.
type Searcher struct {
	store SheetReader
	sheet string
	syn   SynonymSet
}

// NewSearcher creates a searcher reading sheet from store.
func NewSearcher(store SheetReader, sheet string, syn SynonymSet) *Searcher {
	return &Searcher{store: store, sheet: sheet, syn: syn}
}

// Search loads the catalog and runs Search over it.
func (s *Searcher) Search(ctx context.Context, query string) ([]PartRecord, error) {
	master, err := LoadMaster(ctx, s.store, s.sheet)
	if err != nil {
		return nil, err
	}
	return Search(query, master, s.syn)
}

// Find returns the record whose identifier equals id exactly.
func (s *Searcher) Find(ctx context.Context, id string) (PartRecord, bool, error) {
	results, err := s.Search(ctx, id)
	if err != nil {
		return PartRecord{}, false, fmt.Errorf("find %q: %w", id, err)
	}
	for _, r := range results {
		if r.ID == id {
			return r, true, nil
		}
	}
	return PartRecord{}, false, nil
}

// Schema resolves the current master layout, for diagnostics.
func (s *Searcher) Schema(ctx context.Context) (MasterSchema, error) {
	master, err := LoadMaster(ctx, s.store, s.sheet)
	if err != nil {
		return MasterSchema{}, err
	}
	return master.Schema(s.syn)
}
