package markers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableFrom(data [][]string) *Table {
	t := NewTable()
	for _, row := range data {
		t.Add(row[0], row[1:]...)
	}
	return t
}

func TestBuild_Basic(t *testing.T) {
	tbl := tableFrom([][]string{
		{"T-cell", "CD3D", "CD3E", "IL7R", "TRAC", "CD2", "LCK"},
		{"B-cell", "MS4A1", "CD79A", "CD79B", "IGHM", "BANK1", "CD19"},
	})

	panel, err := Build(tbl, Options{PanelSize: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"CD3D", "CD3E", "IL7R", "MS4A1", "CD79A", "CD79B"}, panel.Features())
	assert.Equal(t, []string{"T-cell", "B-cell"}, panel.Groups())
	assert.Equal(t, []float64{2.5}, panel.Boundaries)
	for i, e := range panel.Entries {
		assert.Equal(t, i%3+1, e.Rank)
	}
}

func TestBuild_DefaultPanelSize(t *testing.T) {
	tbl := tableFrom([][]string{
		{"A", "g1", "g2", "g3", "g4", "g5", "g6", "g7"},
	})
	panel, err := Build(tbl, Options{})
	require.NoError(t, err)
	assert.Len(t, panel.Entries, DefaultPanelSize)
	assert.Empty(t, panel.Boundaries)
}

func TestBuild_NoDuplicatesWithoutUniqueOnly(t *testing.T) {
	// Shared markers across groups collapse to their first occurrence even
	// when deduplication was not requested.
	tbl := tableFrom([][]string{
		{"A", "g1", "g2"},
		{"B", "g2", "g3"},
	})
	panel, err := Build(tbl, Options{PanelSize: 2})
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, e := range panel.Entries {
		assert.False(t, seen[e.Feature], "duplicate feature %s", e.Feature)
		seen[e.Feature] = true
	}
	assert.Equal(t, []string{"g1", "g2", "g3"}, panel.Features())
	assert.Equal(t, "A", panel.Entries[1].Group, "g2 stays with the first group block")
}

func TestBuild_DedupScenario(t *testing.T) {
	// Groups {A: [g1,g2,g3], B: [g2,g1,g4]}: g1 ranks 1 in A vs 2 in B, g2
	// ranks 2 in A vs 1 in B. Best rank owns the feature.
	tbl := tableFrom([][]string{
		{"A", "g1", "g2", "g3"},
		{"B", "g2", "g1", "g4"},
	})
	panel, err := Build(tbl, Options{PanelSize: 2, UniqueOnly: true})
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Feature: "g1", Group: "A", Rank: 1},
		{Feature: "g3", Group: "A", Rank: 2},
		{Feature: "g2", Group: "B", Rank: 1},
		{Feature: "g4", Group: "B", Rank: 2},
	}, panel.Entries)
	assert.Equal(t, []float64{1.5}, panel.Boundaries)

	// Deterministic: repeated runs give identical output.
	again, err := Build(tbl, Options{PanelSize: 2, UniqueOnly: true})
	require.NoError(t, err)
	assert.Equal(t, panel, again)
}

func TestBuild_DedupTieBreakOnGroup(t *testing.T) {
	// Both groups rank gX first; the lexicographically smaller group wins.
	tbl := tableFrom([][]string{
		{"beta", "gX", "b2"},
		{"alpha", "gX", "a2"},
	})
	panel, err := Build(tbl, Options{PanelSize: 2, UniqueOnly: true})
	require.NoError(t, err)
	for _, e := range panel.Entries {
		if e.Feature == "gX" {
			assert.Equal(t, "alpha", e.Group)
		}
	}
	// Table order still dictates block order.
	assert.Equal(t, []string{"beta", "alpha"}, panel.Groups())
}

func TestBuild_DedupIdempotent(t *testing.T) {
	tbl := tableFrom([][]string{
		{"A", "g1", "g2", "g3", "g5"},
		{"B", "g2", "g1", "g4", "g6"},
		{"C", "g3", "g4", "g7", "g1"},
	})
	first, err := Build(tbl, Options{PanelSize: 3, UniqueOnly: true})
	require.NoError(t, err)

	rebuilt := NewTable()
	for _, e := range first.Entries {
		rebuilt.Add(e.Group, e.Feature)
	}
	second, err := Build(rebuilt, Options{PanelSize: 3, UniqueOnly: true})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBuild_TechnicalFilterOrderPreservingAndRectangular(t *testing.T) {
	tbl := tableFrom([][]string{
		{"A", "MT-CO1", "CD3D", "RPL13", "IL7R", "TRAC", "CD2"},
		{"B", "MS4A1", "CD79A", "MT-ND1"},
	})
	panel, err := Build(tbl, Options{PanelSize: 10, Filter: MitoRibo()})
	require.NoError(t, err)

	// B keeps 2 features after filtering, so A is capped at 2 as well, with
	// its survivors in original rank order.
	assert.Equal(t, []string{"CD3D", "IL7R", "MS4A1", "CD79A"}, panel.Features())
}

func TestBuild_FilterEmptiesGroup(t *testing.T) {
	tbl := tableFrom([][]string{
		{"A", "CD3D", "CD3E"},
		{"B", "MT-CO1", "RPS6"},
	})
	_, err := Build(tbl, Options{Filter: MitoRibo()})
	require.ErrorIs(t, err, ErrInvalidPanelRequest)
	assert.Contains(t, err.Error(), `"B"`)
}

func TestBuild_PanelSizeFill(t *testing.T) {
	tbl := tableFrom([][]string{
		{"A", "a1", "a2", "a3", "a4"},
		{"B", "b1", "b2", "b3", "b4"},
	})
	panel, err := Build(tbl, Options{PanelSize: 3, UniqueOnly: true})
	require.NoError(t, err)
	perGroup := map[string]int{}
	for _, e := range panel.Entries {
		perGroup[e.Group]++
	}
	assert.Equal(t, map[string]int{"A": 3, "B": 3}, perGroup)
}

func TestBuild_GroupSubset(t *testing.T) {
	tbl := tableFrom([][]string{
		{"A", "a1", "a2"},
		{"B", "b1", "b2"},
		{"C", "c1", "c2"},
	})

	t.Run("keeps only requested groups", func(t *testing.T) {
		panel, err := Build(tbl, Options{PanelSize: 2, Groups: []string{"C", "A"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "C"}, panel.Groups())
		assert.Equal(t, []float64{1.5}, panel.Boundaries)
	})

	t.Run("unknown names are ignored when something matches", func(t *testing.T) {
		panel, err := Build(tbl, Options{PanelSize: 2, Groups: []string{"A", "Z"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, panel.Groups())
	})

	t.Run("empty intersection fails", func(t *testing.T) {
		_, err := Build(tbl, Options{PanelSize: 2, Groups: []string{"X", "Y"}})
		require.ErrorIs(t, err, ErrEmptyGroupSubset)
		assert.Contains(t, err.Error(), "X")
	})
}

func TestBuild_InvalidRequests(t *testing.T) {
	tbl := tableFrom([][]string{{"A", "a1"}})

	_, err := Build(tbl, Options{PanelSize: -1})
	assert.ErrorIs(t, err, ErrInvalidPanelRequest)

	_, err = Build(NewTable(), Options{PanelSize: 2})
	assert.ErrorIs(t, err, ErrInvalidPanelRequest)

	_, err = Build(nil, Options{PanelSize: 2})
	assert.ErrorIs(t, err, ErrInvalidPanelRequest)
}

func TestBuild_BoundaryInvariants(t *testing.T) {
	tbl := tableFrom([][]string{
		{"A", "a1", "a2", "a3"},
		{"B", "b1"},
		{"C", "c1", "c2"},
		{"D", "d1", "d2", "d3", "d4"},
	})
	panel, err := Build(tbl, Options{PanelSize: 4})
	require.NoError(t, err)

	groups := panel.Groups()
	require.Len(t, panel.Boundaries, len(groups)-1)
	for i := 1; i < len(panel.Boundaries); i++ {
		assert.Greater(t, panel.Boundaries[i], panel.Boundaries[i-1])
	}
	assert.Equal(t, []float64{2.5, 3.5, 5.5}, panel.Boundaries)
}
