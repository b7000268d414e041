package markers

// Table holds one ranked marker sequence per group, best marker first.
// Group order is first-appearance order, which downstream code treats as the
// display order of group blocks.
type Table struct {
	groups []string
	seqs   map[string][]string
	seen   map[string]map[string]bool
}

func NewTable() *Table {
	return &Table{
		seqs: make(map[string][]string),
		seen: make(map[string]map[string]bool),
	}
}

// Add appends features to a group's ranked sequence. Features already present
// in that group are skipped so a group never ranks the same feature twice.
func (t *Table) Add(group string, features ...string) {
	if _, ok := t.seqs[group]; !ok {
		t.groups = append(t.groups, group)
		t.seqs[group] = nil
		t.seen[group] = make(map[string]bool)
	}
	for _, f := range features {
		if f == "" || t.seen[group][f] {
			continue
		}
		t.seen[group][f] = true
		t.seqs[group] = append(t.seqs[group], f)
	}
}

// Groups returns the group identifiers in table order.
func (t *Table) Groups() []string {
	out := make([]string, len(t.groups))
	copy(out, t.groups)
	return out
}

// Sequence returns a copy of the ranked feature list for a group.
func (t *Table) Sequence(group string) []string {
	seq, ok := t.seqs[group]
	if !ok {
		return nil
	}
	out := make([]string, len(seq))
	copy(out, seq)
	return out
}

func (t *Table) Len() int { return len(t.groups) }
