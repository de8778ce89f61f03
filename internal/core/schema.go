package core

// schema.go maps human-edited header rows onto canonical fields.
//
// Matching runs in two passes over normalized text. The exact pass wins
// whenever it finds anything, so a short synonym such as "ID" cannot
// latch onto an unrelated header like "Liquidity" when a real "ID" column
// exists further right. The partial pass (substring either way) only runs
// when the exact pass finds nothing; it absorbs informal renames such as
// "Kode Lokasi" vs "KodeLokasi" vs "Lokasi Rak".
//
// Headers are re-resolved on every request because the spreadsheet can be
// edited at any time.

import "strings"

// NotFound marks a field that no header cell resolved to.
const NotFound = -1

// ResolveColumn returns the position of the header cell matching any of
// synonyms, preferring an exact normalized match over a partial one.
func ResolveColumn(header []string, synonyms []string) (int, bool) {
	nh := normalizeAll(header)
	ns := normalizeSynonyms(synonyms)
	if len(ns) == 0 {
		return NotFound, false
	}

	for i, h := range nh {
		for _, s := range ns {
			if h == s {
				return i, true
			}
		}
	}

	for i, h := range nh {
		if h == "" {
			continue
		}
		for _, s := range ns {
			if strings.Contains(h, s) || strings.Contains(s, h) {
				return i, true
			}
		}
	}

	return NotFound, false
}

// ResolveColumns returns every header position equal to, containing, or
// contained in a synonym, in header order without duplicates.
func ResolveColumns(header []string, synonyms []string) []int {
	nh := normalizeAll(header)
	ns := normalizeSynonyms(synonyms)

	var out []int
	for i, h := range nh {
		if h == "" {
			continue
		}
		for _, s := range ns {
			if h == s || strings.Contains(h, s) || strings.Contains(s, h) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

func normalizeAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = Normalize(c)
	}
	return out
}

// normalizeSynonyms drops synonyms that normalize to nothing; an empty
// synonym would otherwise be a substring of every header.
func normalizeSynonyms(synonyms []string) []string {
	out := make([]string, 0, len(synonyms))
	for _, s := range synonyms {
		if n := Normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// LedgerSchema is the resolved column layout of the ledger sheet.
type LedgerSchema struct {
	Header []string
	Index  map[Field]int
}

// Width is the number of cells an appended row must carry.
func (s LedgerSchema) Width() int {
	return len(s.Header)
}

// ResolveLedgerSchema resolves every required ledger field. It returns a
// SchemaError naming all unresolved fields when any is missing.
func ResolveLedgerSchema(sheet string, header []string, syn SynonymSet) (LedgerSchema, error) {
	header = cleanHeader(header)
	if len(header) == 0 {
		return LedgerSchema{}, &AccessError{Op: "read", Sheet: sheet, Err: ErrEmptySheet}
	}

	idx := make(map[Field]int, len(LedgerFields))
	var missing []Field
	for _, f := range LedgerFields {
		i, ok := ResolveColumn(header, syn[f])
		if !ok {
			missing = append(missing, f)
			continue
		}
		idx[f] = i
	}

	if len(missing) > 0 {
		return LedgerSchema{}, &SchemaError{Sheet: sheet, Missing: missing, Header: header}
	}
	return LedgerSchema{Header: header, Index: idx}, nil
}

// MasterSchema is the resolved column layout of the master catalog.
// ID, Name, Primary, Bin and Visual are NotFound when absent.
type MasterSchema struct {
	Header   []string
	ID       int
	Name     int
	Location []int
	Primary  int
	Bin      int
	Visual   int
}

// HasID reports whether an identifier column resolved.
func (s MasterSchema) HasID() bool { return s.ID != NotFound }

// HasName reports whether a name column resolved.
func (s MasterSchema) HasName() bool { return s.Name != NotFound }

// ResolveMasterSchema resolves the master catalog columns. Only the
// identifier-or-name requirement is fatal.
func ResolveMasterSchema(sheet string, header []string, syn SynonymSet) (MasterSchema, error) {
	header = cleanHeader(header)
	if len(header) == 0 {
		return MasterSchema{}, &AccessError{Op: "read", Sheet: sheet, Err: ErrEmptySheet}
	}

	s := MasterSchema{
		Header:  header,
		ID:      resolveOrNotFound(header, syn[FieldID]),
		Name:    resolveOrNotFound(header, syn[FieldName]),
		Visual:  resolveOrNotFound(header, syn[FieldVisual]),
		Primary: NotFound,
		Bin:     NotFound,
	}
	if !s.HasID() && !s.HasName() {
		return MasterSchema{}, &SchemaError{
			Sheet:   sheet,
			Missing: []Field{FieldID, FieldName},
			Header:  header,
		}
	}

	s.Location = ResolveColumns(header, syn[FieldLocation])

	// Primary and bin are picked among the location columns only.
	s.Primary = resolveAmong(header, s.Location, syn[FieldPrimaryLocation])
	s.Bin = resolveAmong(header, s.Location, syn[FieldBin])

	return s, nil
}

func resolveOrNotFound(header []string, synonyms []string) int {
	i, ok := ResolveColumn(header, synonyms)
	if !ok {
		return NotFound
	}
	return i
}

// resolveAmong runs ResolveColumn restricted to the given positions.
func resolveAmong(header []string, positions []int, synonyms []string) int {
	if len(positions) == 0 || len(synonyms) == 0 {
		return NotFound
	}
	sub := make([]string, len(positions))
	for i, p := range positions {
		sub[i] = header[p]
	}
	i, ok := ResolveColumn(sub, synonyms)
	if !ok {
		return NotFound
	}
	return positions[i]
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	nonEmpty := false
	for i, h := range header {
		out[i] = CleanCell(h)
		if out[i] != "" {
			nonEmpty = true
		}
	}
	if !nonEmpty {
		return nil
	}
	return out
}
