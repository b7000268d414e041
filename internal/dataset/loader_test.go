package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDataset = `{
  "name": "pbmc-mini",
  "cells": ["c1", "c2", "c3"],
  "genes": ["CD3D", "MS4A1", "GM42418"],
  "expression": {
    "CD3D": [2.1, 0.0, 1.4],
    "MS4A1": [0.0, 3.2, null],
    "GM42418": [0.1, 0.1, 0.2]
  },
  "embeddings": {
    "umap": [[0.1, 0.2], [5.0, 5.1], [0.3, 0.1]]
  },
  "metadata": {
    "cluster": {"kind": "categorical", "labels": ["T", "B", null]},
    "n_counts": {"kind": "numeric", "values": [1200, 980, null]}
  },
  "gene_annotations": {
    "GM42418": {"biotype": "processed_pseudogene", "transcripts": ["GM42418-201"]},
    "CD3D": {"biotype": "protein_coding", "transcripts": ["CD3D-201", "CD3D-202"]}
  }
}`

func TestParse(t *testing.T) {
	ds, err := Parse([]byte(sampleDataset))
	require.NoError(t, err)

	assert.Equal(t, "pbmc-mini", ds.Name)
	assert.Equal(t, 3, ds.CellCount())
	assert.True(t, ds.HasGene("CD3D"))
	assert.False(t, ds.HasGene("CD8A"))

	expr, err := ds.Expression("MS4A1")
	require.NoError(t, err)
	require.Len(t, expr, 3)
	assert.Equal(t, 3.2, expr[1])
	assert.True(t, math.IsNaN(expr[2]), "null expression becomes NaN")

	_, err = ds.Expression("CD8A")
	assert.Error(t, err)

	umap, ok := ds.Embedding("umap")
	require.True(t, ok)
	assert.Equal(t, [][]float64{{0.1, 0.2}, {5.0, 5.1}, {0.3, 0.1}}, umap)
	_, ok = ds.Embedding("tsne")
	assert.False(t, ok)

	col, ok := ds.Column("cluster")
	require.True(t, ok)
	assert.Equal(t, KindCategorical, col.Kind)
	assert.Equal(t, []string{"T", "B", ""}, col.Labels)

	assert.Equal(t, []string{"cluster", "n_counts"}, ds.ColumnNames())

	info, ok := ds.GeneAnnotation("CD3D")
	require.True(t, ok)
	assert.Len(t, info.Transcripts, 2)
}

func TestParse_Pseudogenes(t *testing.T) {
	ds, err := Parse([]byte(sampleDataset))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"GM42418": true}, ds.Pseudogenes())
}

func TestParse_GroupIndices(t *testing.T) {
	ds, err := Parse([]byte(sampleDataset))
	require.NoError(t, err)

	groups, order, err := ds.GroupIndices("cluster")
	require.NoError(t, err)
	assert.Equal(t, []string{"T", "B", "NA"}, order)
	assert.Equal(t, []int{2}, groups["NA"], "missing label lands in an explicit NA group")

	_, _, err = ds.GroupIndices("n_counts")
	assert.Error(t, err, "numeric columns cannot partition cells")

	_, _, err = ds.GroupIndices("missing")
	assert.Error(t, err)
}

func TestParse_SchemaViolations(t *testing.T) {
	cases := map[string]string{
		"missing name":   `{"cells": ["c1"], "genes": ["g"], "expression": {}}`,
		"empty cells":    `{"name": "x", "cells": [], "genes": ["g"], "expression": {}}`,
		"bad meta kind":  `{"name": "x", "cells": ["c1"], "genes": ["g"], "expression": {}, "metadata": {"m": {"kind": "ordinal"}}}`,
		"not json":       `{`,
		"expression len": `{"name": "x", "cells": ["c1", "c2"], "genes": ["g"], "expression": {"g": [1.0]}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParseMarkerTable(t *testing.T) {
	tbl, err := ParseMarkerTable([]byte(`{
	  "T-cell": ["CD3D", "CD3E", "IL7R"],
	  "B-cell": ["MS4A1", "CD79A"]
	}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"T-cell", "B-cell"}, tbl.Groups(), "file order is table order")
	assert.Equal(t, []string{"CD3D", "CD3E", "IL7R"}, tbl.Sequence("T-cell"))

	_, err = ParseMarkerTable([]byte(`["CD3D"]`))
	assert.Error(t, err)

	_, err = ParseMarkerTable([]byte(`{"T": "CD3D"}`))
	assert.Error(t, err)

	_, err = ParseMarkerTable([]byte(`{}`))
	assert.Error(t, err)
}
