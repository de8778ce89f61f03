package core

// resolve.go turns free text typed (or scanned) by a user into a part
// identifier.
//
// Resolution order:
//  1. Blank input is Lenient without touching the catalog.
//  2. Identifier column: NormalizeIdentifier(query) compared against each
//     row's identifier. The first row in sheet order wins.
//  3. Name column: case-insensitive substring of the name, keeping only
//     rows that carry an identifier. One hit resolves; several are
//     Ambiguous (first MaxCandidates in sheet order).
//  4. Anything else is Lenient and the raw text is stored as typed,
//     because the catalog may lag real inventory.

import (
	"context"
	"log/slog"
	"strings"
)

// MaxCandidates caps the candidate list of an Ambiguous outcome.
const MaxCandidates = 25

// Lenient reasons.
const (
	ReasonEmptyInput        = "empty input"
	ReasonNotInMaster       = "identifier not found in master; stored as-is"
	ReasonMasterUnavailable = "master catalog unavailable; stored as-is"
)

// Resolution is the outcome of one resolution attempt. It is implemented
// only by Resolved, Ambiguous and Lenient.
type Resolution interface {
	resolution()
}

// Resolved is a single catalog hit. Name is empty when the catalog has no
// name column or the cell is blank.
type Resolved struct {
	ID   string
	Name string
}

// Candidate is one row offered for disambiguation.
type Candidate struct {
	ID   string
	Name string
}

// Ambiguous lists the rows whose name matched, in sheet order.
type Ambiguous struct {
	Candidates []Candidate
}

// Lenient carries input that did not resolve; Raw is stored verbatim.
type Lenient struct {
	Raw    string
	Reason string
}

func (Resolved) resolution()  {}
func (Ambiguous) resolution() {}
func (Lenient) resolution()   {}

// Resolve matches query against a master snapshot.
func Resolve(query string, master MasterData, syn SynonymSet) Resolution {
	raw := strings.TrimSpace(query)
	if raw == "" {
		return Lenient{Raw: raw, Reason: ReasonEmptyInput}
	}

	schema, err := master.Schema(syn)
	if err != nil {
		return Lenient{Raw: raw, Reason: ReasonMasterUnavailable}
	}

	if schema.HasID() {
		want := NormalizeIdentifier(raw)
		for _, row := range master.Rows {
			id := cell(row, schema.ID)
			if id != "" && NormalizeIdentifier(id) == want {
				return Resolved{ID: id, Name: cell(row, schema.Name)}
			}
		}
	}

	if schema.HasName() {
		needle := strings.ToLower(raw)
		var cands []Candidate
		for _, row := range master.Rows {
			name := cell(row, schema.Name)
			if name == "" || !strings.Contains(strings.ToLower(name), needle) {
				continue
			}
			id := cell(row, schema.ID)
			if id == "" {
				continue
			}
			cands = append(cands, Candidate{ID: id, Name: name})
		}

		switch {
		case len(cands) == 1:
			return Resolved{ID: cands[0].ID, Name: cands[0].Name}
		case len(cands) > 1:
			if len(cands) > MaxCandidates {
				cands = cands[:MaxCandidates]
			}
			return Ambiguous{Candidates: cands}
		}
	}

	return Lenient{Raw: raw, Reason: ReasonNotInMaster}
}

// Resolver resolves against the live master catalog. It re-reads the
// sheet on every call.
type Resolver struct {
	store SheetReader
	sheet string
	syn   SynonymSet
}

// NewResolver creates a resolver reading sheet from store.
func NewResolver(store SheetReader, sheet string, syn SynonymSet) *Resolver {
	return &Resolver{store: store, sheet: sheet, syn: syn}
}

// Resolve never fails: an unreadable catalog degrades to Lenient.
func (r *Resolver) Resolve(ctx context.Context, query string) Resolution {
	raw := strings.TrimSpace(query)
	if raw == "" {
		return Lenient{Raw: raw, Reason: ReasonEmptyInput}
	}

	master, err := LoadMaster(ctx, r.store, r.sheet)
	if err != nil {
		slog.WarnContext(ctx, "master catalog unavailable, resolving leniently",
			"sheet", r.sheet,
			"error", err,
		)
		return Lenient{Raw: raw, Reason: ReasonMasterUnavailable}
	}

	return Resolve(raw, master, r.syn)
}
