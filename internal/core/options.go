package core

import "strings"

// Options holds the closed choice sets a movement record is validated
// against. The first spelling of each option is the one stored.
type Options struct {
	Movements  []string
	Conditions []string
}

// DefaultOptions returns In/Out movements and Baru/Used conditions.
func DefaultOptions() Options {
	return Options{
		Movements:  []string{"In", "Out"},
		Conditions: []string{"Baru", "Used"},
	}
}

// Movement returns the canonical spelling of s, matched case-insensitively.
func (o Options) Movement(s string) (string, bool) {
	return canonical(o.Movements, s)
}

// Condition returns the canonical spelling of s, matched case-insensitively.
func (o Options) Condition(s string) (string, bool) {
	return canonical(o.Conditions, s)
}

func canonical(set []string, s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, opt := range set {
		if strings.EqualFold(opt, s) {
			return opt, true
		}
	}
	return "", false
}
