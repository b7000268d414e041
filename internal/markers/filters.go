package markers

import (
	"regexp"
	"strings"
)

// Predicate reports whether a feature is technical and should be excluded
// from marker panels.
type Predicate func(feature string) bool

// Any composes predicates so a feature is excluded when any of them matches.
// Nil entries are ignored; Any() with no usable predicate returns nil.
func Any(preds ...Predicate) Predicate {
	active := preds[:0:0]
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(feature string) bool {
		for _, p := range active {
			if p(feature) {
				return true
			}
		}
		return false
	}
}

var mitoRiboPattern = regexp.MustCompile(`(?i)^(mt-|mrp[sl]|rp[sl])`)

// MitoRibo matches mitochondrial and ribosomal gene symbols by naming
// convention (MT-*, RPS*/RPL*, MRPS*/MRPL*).
func MitoRibo() Predicate {
	return func(feature string) bool {
		return mitoRiboPattern.MatchString(feature)
	}
}

// InSet excludes features contained in an explicitly supplied identifier set,
// e.g. the pseudogene/non-coding table from a dataset's gene annotations.
// The set is passed in rather than read from package state so callers control
// exactly which reference table applies.
func InSet(ids map[string]bool) Predicate {
	if len(ids) == 0 {
		return nil
	}
	return func(feature string) bool {
		return ids[feature]
	}
}

// MatchPattern excludes features whose identifier matches re.
func MatchPattern(re *regexp.Regexp) Predicate {
	if re == nil {
		return nil
	}
	return func(feature string) bool {
		return re.MatchString(feature)
	}
}

// TechnicalFilter builds the predicate for one of the named filter modes.
// Recognized modes: "", "none", "pseudogene", "mito-ribo", "both". The
// pseudogene set comes from the caller (see InSet).
func TechnicalFilter(mode string, pseudogenes map[string]bool) (Predicate, bool) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "none":
		return nil, true
	case "pseudogene":
		return InSet(pseudogenes), true
	case "mito-ribo":
		return MitoRibo(), true
	case "both":
		return Any(MitoRibo(), InSet(pseudogenes)), true
	}
	return nil, false
}
