package core

// normalize.go canonicalizes header cells, synonyms and part identifiers so
// that informally edited spreadsheets still compare equal.
//
// Two normal forms exist because they serve different comparisons:
//   - Normalize is for column headers and synonyms ("Kode Lokasi",
//     "KodeLokasi" and "kode-lokasi" all become "kodelokasi").
//   - NormalizeIdentifier is for part identifiers ("abc-001", "ABC 001" and
//     "ABC_001" all become "ABC001"). Only whitespace, '-' and '_' are
//     dropped; any other punctuation stays significant.

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases s and keeps only ASCII letters and digits.
// Accented letters are folded to their base letter before filtering.
func Normalize(s string) string {
	if s == "" {
		return ""
	}

	folded := foldAccents(strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeIdentifier uppercases s and removes whitespace, hyphens and
// underscores.
func NormalizeIdentifier(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(strings.TrimSpace(s)) {
		if unicode.IsSpace(r) || r == '-' || r == '_' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// foldAccents strips combining marks after canonical decomposition.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace, a leading byte order mark, and the Excel text
// formula wrapper (="...").
func CleanCell(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}

	return strings.TrimSpace(s)
}

// cell returns the cleaned value at idx, or "" when the row is too short
// or idx is NotFound.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return CleanCell(row[idx])
}
