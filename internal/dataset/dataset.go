package dataset

import (
	"fmt"
	"strings"
)

// Column kinds as they appear in dataset files.
const (
	KindCategorical = "categorical"
	KindNumeric     = "numeric"
)

// MetaColumn is one per-cell annotation column. Categorical columns carry
// Labels (empty string = missing), numeric columns carry Values (NaN =
// missing). Both slices are cell-aligned.
type MetaColumn struct {
	Kind   string
	Labels []string
	Values []float64
}

// GeneInfo is the static annotation attached to a gene: its biotype and the
// transcript identifiers it produces.
type GeneInfo struct {
	Biotype     string
	Transcripts []string
}

// Dataset is a read-only snapshot of a single-cell expression dataset:
// normalized expression per gene, cell metadata, and any precomputed
// embeddings. All derived structures (panels, layouts) are built per call
// and never written back.
type Dataset struct {
	Name  string
	Cells []string
	Genes []string

	expr       map[string][]float64
	embeddings map[string][][]float64
	meta       map[string]MetaColumn
	metaOrder  []string
	geneInfo   map[string]GeneInfo
}

func (d *Dataset) CellCount() int { return len(d.Cells) }

func (d *Dataset) HasGene(gene string) bool {
	_, ok := d.expr[gene]
	return ok
}

// Expression returns the per-cell expression vector for one gene.
func (d *Dataset) Expression(gene string) ([]float64, error) {
	v, ok := d.expr[gene]
	if !ok {
		return nil, fmt.Errorf("gene %q not in dataset %q", gene, d.Name)
	}
	return v, nil
}

// Embedding returns the per-cell coordinates of a named reduction (e.g.
// "umap", "pca"), or false when the dataset does not carry it.
func (d *Dataset) Embedding(name string) ([][]float64, bool) {
	e, ok := d.embeddings[name]
	return e, ok
}

// Column returns a metadata column by name.
func (d *Dataset) Column(name string) (MetaColumn, bool) {
	c, ok := d.meta[name]
	return c, ok
}

// ColumnNames lists metadata columns in file order.
func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.metaOrder))
	copy(out, d.metaOrder)
	return out
}

// GeneAnnotation returns the static annotation for a gene, if present.
func (d *Dataset) GeneAnnotation(gene string) (GeneInfo, bool) {
	g, ok := d.geneInfo[gene]
	return g, ok
}

// Pseudogenes collects the genes whose biotype marks them as pseudogenes or
// other non-coding technical classes. The set feeds the panel builder's
// technical filter as an explicit parameter.
func (d *Dataset) Pseudogenes() map[string]bool {
	out := make(map[string]bool)
	for gene, info := range d.geneInfo {
		b := strings.ToLower(info.Biotype)
		if strings.Contains(b, "pseudogene") || b == "tec" || b == "artifact" {
			out[gene] = true
		}
	}
	return out
}

// GroupIndices maps each level of a categorical column to the cell indices
// carrying it. Missing values group under "NA".
func (d *Dataset) GroupIndices(column string) (map[string][]int, []string, error) {
	col, ok := d.meta[column]
	if !ok {
		return nil, nil, fmt.Errorf("metadata column %q not in dataset %q", column, d.Name)
	}
	if col.Kind != KindCategorical {
		return nil, nil, fmt.Errorf("metadata column %q is not categorical", column)
	}
	groups := make(map[string][]int)
	var order []string
	for i, l := range col.Labels {
		if l == "" {
			l = "NA"
		}
		if _, seen := groups[l]; !seen {
			order = append(order, l)
		}
		groups[l] = append(groups[l], i)
	}
	return groups, order, nil
}
