package core

import (
	"strconv"
	"strings"
)

// FormatLocation renders a record's location as two display lines. The
// first names the primary location ("-" when absent); the second lists the
// remaining fields as "label = value" joined by " | ". Purely numeric bin
// numbers are zero-padded to two digits.
func FormatLocation(rec PartRecord) (primary, details string) {
	primary = "-"
	var parts []string
	for _, f := range rec.Location {
		switch f.Role {
		case LocationPrimary:
			primary = f.Value
		case LocationBin:
			parts = append(parts, f.Label+" = "+padBin(f.Value))
		default:
			parts = append(parts, f.Label+" = "+f.Value)
		}
	}
	return "Lokasi: " + primary, strings.Join(parts, " | ")
}

func padBin(v string) string {
	for _, r := range v {
		if r < '0' || r > '9' {
			return v
		}
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return v
	}
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
