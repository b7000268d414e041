package markers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultPanelSize is the number of markers kept per group when the caller
// does not override it.
const DefaultPanelSize = 5

var (
	// ErrInvalidPanelRequest covers bad parameters and groups left without
	// any eligible marker after technical filtering.
	ErrInvalidPanelRequest = errors.New("invalid panel request")
	// ErrEmptyGroupSubset is returned when a requested group subset shares
	// no group with the marker table.
	ErrEmptyGroupSubset = errors.New("group subset matches no group")
)

// Entry is one feature of the final panel, labeled with its owning group and
// its 1-based rank inside that group's block.
type Entry struct {
	Feature string `json:"feature"`
	Group   string `json:"group"`
	Rank    int    `json:"rank"`
}

// Panel is the flattened, group-major marker sequence handed to the dot-plot
// renderer, plus separator positions between group blocks. Feature
// identifiers are globally unique across Entries.
type Panel struct {
	Entries    []Entry   `json:"entries"`
	Boundaries []float64 `json:"boundaries"`
}

// Features returns the panel's feature identifiers in display order.
func (p *Panel) Features() []string {
	out := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		out[i] = e.Feature
	}
	return out
}

// Groups returns the distinct group identifiers in block order.
func (p *Panel) Groups() []string {
	var out []string
	last := ""
	for i, e := range p.Entries {
		if i == 0 || e.Group != last {
			out = append(out, e.Group)
			last = e.Group
		}
	}
	return out
}

// Options control panel construction. PanelSize zero means DefaultPanelSize;
// a negative value is rejected. Filter is the composed technical-gene
// predicate (nil = keep everything). Groups restricts the output to a subset
// of the table's groups.
type Options struct {
	PanelSize  int
	Filter     Predicate
	UniqueOnly bool
	Groups     []string
}

type rankedEntry struct {
	feature string
	group   string
	rank    int
}

// Build assembles a marker panel from a ranked table.
//
// Pipeline: technical filtering (rank order preserved, then every group
// truncated to the shortest surviving sequence so the table stays
// rectangular), optional cross-group deduplication (best rank wins, ties on
// group identifier), per-group truncation to PanelSize, optional group-subset
// filter, and boundary computation. The no-duplicate-feature invariant is
// enforced on the final flattened sequence regardless of UniqueOnly.
func Build(t *Table, opts Options) (*Panel, error) {
	size := opts.PanelSize
	if size == 0 {
		size = DefaultPanelSize
	}
	if size < 0 {
		return nil, fmt.Errorf("panel size %d: %w", opts.PanelSize, ErrInvalidPanelRequest)
	}
	if t == nil || t.Len() == 0 {
		return nil, fmt.Errorf("empty marker table: %w", ErrInvalidPanelRequest)
	}

	groups := t.Groups()
	seqs := make(map[string][]string, len(groups))
	for _, g := range groups {
		seqs[g] = t.Sequence(g)
	}

	if opts.Filter != nil {
		if err := applyTechnicalFilter(groups, seqs, opts.Filter); err != nil {
			return nil, err
		}
	}
	for _, g := range groups {
		if len(seqs[g]) == 0 {
			return nil, fmt.Errorf("group %q has no markers: %w", g, ErrInvalidPanelRequest)
		}
	}

	if opts.UniqueOnly {
		deduplicate(groups, seqs)
	}

	keep, err := subsetFilter(groups, opts.Groups)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(groups)*size)
	seen := make(map[string]bool)
	for _, g := range groups {
		if keep != nil && !keep[g] {
			continue
		}
		seq := seqs[g]
		if len(seq) > size {
			seq = seq[:size]
		}
		rank := 0
		for _, f := range seq {
			if seen[f] {
				continue
			}
			seen[f] = true
			rank++
			entries = append(entries, Entry{Feature: f, Group: g, Rank: rank})
		}
	}

	return &Panel{Entries: entries, Boundaries: boundaries(entries)}, nil
}

// applyTechnicalFilter drops matching features per group, keeping relative
// order, then truncates every group to the shortest surviving sequence so a
// later pivot stays rectangular. Panels are capped by the worst-covered
// group rather than padded.
func applyTechnicalFilter(groups []string, seqs map[string][]string, pred Predicate) error {
	shortest := -1
	shortestGroup := ""
	for _, g := range groups {
		kept := seqs[g][:0:0]
		for _, f := range seqs[g] {
			if pred(f) {
				continue
			}
			kept = append(kept, f)
		}
		seqs[g] = kept
		if shortest < 0 || len(kept) < shortest {
			shortest = len(kept)
			shortestGroup = g
		}
	}
	if shortest == 0 {
		return fmt.Errorf("group %q has no markers left after technical filtering: %w",
			shortestGroup, ErrInvalidPanelRequest)
	}
	for _, g := range groups {
		seqs[g] = seqs[g][:shortest]
	}
	return nil
}

// deduplicate resolves features claimed by several groups to the single group
// where they rank best. Equal ranks are broken by group identifier so the
// result is reproducible. Surviving features keep their relative order and
// are re-ranked sequentially per group.
func deduplicate(groups []string, seqs map[string][]string) {
	var flat []rankedEntry
	for _, g := range groups {
		for i, f := range seqs[g] {
			flat = append(flat, rankedEntry{feature: f, group: g, rank: i + 1})
		}
	}
	sort.SliceStable(flat, func(i, j int) bool {
		a, b := flat[i], flat[j]
		if a.feature != b.feature {
			return a.feature < b.feature
		}
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		return a.group < b.group
	})
	owner := make(map[string]string, len(flat))
	for _, e := range flat {
		if _, claimed := owner[e.feature]; !claimed {
			owner[e.feature] = e.group
		}
	}
	for _, g := range groups {
		kept := seqs[g][:0:0]
		for _, f := range seqs[g] {
			if owner[f] == g {
				kept = append(kept, f)
			}
		}
		seqs[g] = kept
	}
}

func subsetFilter(groups, subset []string) (map[string]bool, error) {
	if len(subset) == 0 {
		return nil, nil
	}
	known := make(map[string]bool, len(groups))
	for _, g := range groups {
		known[g] = true
	}
	keep := make(map[string]bool, len(subset))
	for _, g := range subset {
		if known[g] {
			keep[g] = true
		}
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("groups [%s]: %w", strings.Join(subset, " "), ErrEmptyGroupSubset)
	}
	return keep, nil
}

// boundaries returns the cumulative per-group entry counts, dropping the
// last, shifted half a slot left so separator lines land between category
// positions on a zero-based axis rather than on a data point.
func boundaries(entries []Entry) []float64 {
	if len(entries) == 0 {
		return nil
	}
	var counts []int
	last := ""
	for i, e := range entries {
		if i == 0 || e.Group != last {
			counts = append(counts, 0)
			last = e.Group
		}
		counts[len(counts)-1]++
	}
	out := make([]float64, 0, len(counts)-1)
	sum := 0
	for _, c := range counts[:len(counts)-1] {
		sum += c
		out = append(out, float64(sum)-0.5)
	}
	return out
}
