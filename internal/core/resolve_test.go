package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func masterFixture() MasterData {
	return MasterData{
		Sheet:  "Sparepart",
		Header: []string{"PartID", "NamaPart", "KodeLokasi"},
		Rows: [][]string{
			{"ABC-001", "Bearing 608", "A1"},
			{"ABC-002", "ABC-001 spare", "A2"},
			{"V-100", "V-Belt A40", "B1"},
			{"V-101", "V-Belt A42", "B1"},
			{"", "V-Belt unlabelled", "B2"},
			{"S-1", "Seal kit", ""},
		},
	}
}

func TestResolve(t *testing.T) {
	syn := DefaultSynonyms().Master
	master := masterFixture()

	tests := []struct {
		name  string
		query string
		want  Resolution
	}{
		{
			name:  "blank input",
			query: "   ",
			want:  Lenient{Raw: "", Reason: ReasonEmptyInput},
		},
		{
			name:  "exact identifier wins over name match",
			query: "ABC-001",
			want:  Resolved{ID: "ABC-001", Name: "Bearing 608"},
		},
		{
			name:  "identifier with other casing and spaces",
			query: "abc 001",
			want:  Resolved{ID: "ABC-001", Name: "Bearing 608"},
		},
		{
			name:  "identifier with underscores",
			query: "ABC_001",
			want:  Resolved{ID: "ABC-001", Name: "Bearing 608"},
		},
		{
			name:  "single name match",
			query: "bearing",
			want:  Resolved{ID: "ABC-001", Name: "Bearing 608"},
		},
		{
			name:  "several name matches in sheet order, rows without id skipped",
			query: "v-belt",
			want: Ambiguous{Candidates: []Candidate{
				{ID: "V-100", Name: "V-Belt A40"},
				{ID: "V-101", Name: "V-Belt A42"},
			}},
		},
		{
			name:  "no match is lenient with raw text",
			query: "xyz",
			want:  Lenient{Raw: "xyz", Reason: ReasonNotInMaster},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.query, master, syn)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Resolve(%q) = %#v, want %#v", tt.query, got, tt.want)
			}
		})
	}
}

func TestResolve_CandidatesCapped(t *testing.T) {
	master := MasterData{Sheet: "Sparepart", Header: []string{"PartID", "NamaPart"}}
	for i := 0; i < 40; i++ {
		master.Rows = append(master.Rows, []string{fmt.Sprintf("F-%02d", i), fmt.Sprintf("Filter %d", i)})
	}

	got := Resolve("filter", master, DefaultSynonyms().Master)
	amb, ok := got.(Ambiguous)
	if !ok {
		t.Fatalf("expected Ambiguous, got %#v", got)
	}
	if len(amb.Candidates) != MaxCandidates {
		t.Fatalf("len(Candidates) = %d, want %d", len(amb.Candidates), MaxCandidates)
	}
	if amb.Candidates[0].ID != "F-00" || amb.Candidates[MaxCandidates-1].ID != "F-24" {
		t.Errorf("candidates not in sheet order: first %s, last %s",
			amb.Candidates[0].ID, amb.Candidates[MaxCandidates-1].ID)
	}
}

func TestResolve_NameOnlyCatalogNeverResolves(t *testing.T) {
	master := MasterData{
		Sheet:  "Sparepart",
		Header: []string{"Nama Barang"},
		Rows:   [][]string{{"Bearing 608"}},
	}

	got := Resolve("bearing", master, DefaultSynonyms().Master)
	if _, ok := got.(Lenient); !ok {
		t.Errorf("expected Lenient when rows carry no identifier, got %#v", got)
	}
}

func TestResolver_DegradesWhenCatalogUnreadable(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeStore)
	}{
		{
			name:  "read error",
			setup: func(s *fakeStore) { s.readErr = errors.New("503 backend error") },
		},
		{
			name:  "missing sheet",
			setup: func(s *fakeStore) {},
		},
		{
			name:  "empty sheet",
			setup: func(s *fakeStore) { s.sheets["Sparepart"] = nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			tt.setup(store)

			r := NewResolver(store, "Sparepart", DefaultSynonyms().Master)
			got := r.Resolve(context.Background(), "ABC-001")

			want := Lenient{Raw: "ABC-001", Reason: ReasonMasterUnavailable}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Resolve() = %#v, want %#v", got, want)
			}
		})
	}
}

func TestResolver_ReadsLatestSheet(t *testing.T) {
	store := newFakeStore()
	store.set("Sparepart", []string{"PartID", "NamaPart"}, []string{"ABC-001", "Bearing 608"})
	r := NewResolver(store, "Sparepart", DefaultSynonyms().Master)
	ctx := context.Background()

	if _, ok := r.Resolve(ctx, "NEW-1").(Lenient); !ok {
		t.Fatal("expected Lenient before the part is added")
	}

	store.set("Sparepart", []string{"NamaPart", "PartID"},
		[]string{"Bearing 608", "ABC-001"},
		[]string{"Gear", "NEW-1"},
	)

	got := r.Resolve(ctx, "new-1")
	want := Resolved{ID: "NEW-1", Name: "Gear"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve() = %#v, want %#v", got, want)
	}
	if store.reads != 2 {
		t.Errorf("reads = %d, want 2", store.reads)
	}
}

func TestResolver_BlankInputSkipsStore(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store, "Sparepart", DefaultSynonyms().Master)

	if _, ok := r.Resolve(context.Background(), "").(Lenient); !ok {
		t.Fatal("expected Lenient")
	}
	if store.reads != 0 {
		t.Errorf("reads = %d, want 0", store.reads)
	}
}
