package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"scview/internal/logger"
	"scview/internal/markers"
)

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("dataset.json", strings.NewReader(datasetSchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("dataset.json")
}

// Load reads and validates a dataset document from disk.
func Load(path string) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset failed: %w", err)
	}
	ds, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	logger.Infof("dataset %q loaded: %d cells, %d genes, %d metadata columns",
		ds.Name, len(ds.Cells), len(ds.Genes), len(ds.metaOrder))
	return ds, nil
}

// Parse validates raw JSON against the dataset schema and extracts it.
func Parse(raw []byte) (*Dataset, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("not valid JSON")
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	root := gjson.ParseBytes(raw)
	ds := &Dataset{
		Name:       root.Get("name").String(),
		expr:       make(map[string][]float64),
		embeddings: make(map[string][][]float64),
		meta:       make(map[string]MetaColumn),
		geneInfo:   make(map[string]GeneInfo),
	}
	for _, c := range root.Get("cells").Array() {
		ds.Cells = append(ds.Cells, c.String())
	}
	for _, g := range root.Get("genes").Array() {
		ds.Genes = append(ds.Genes, g.String())
	}

	var parseErr error
	n := len(ds.Cells)

	root.Get("expression").ForEach(func(key, value gjson.Result) bool {
		vec := numberVector(value, n)
		if len(vec) != n {
			parseErr = fmt.Errorf("expression[%s]: %d values for %d cells", key.String(), len(vec), n)
			return false
		}
		ds.expr[key.String()] = vec
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	root.Get("embeddings").ForEach(func(key, value gjson.Result) bool {
		rows := value.Array()
		if len(rows) != n {
			parseErr = fmt.Errorf("embeddings[%s]: %d rows for %d cells", key.String(), len(rows), n)
			return false
		}
		coords := make([][]float64, len(rows))
		for i, row := range rows {
			pts := row.Array()
			coords[i] = make([]float64, len(pts))
			for j, p := range pts {
				coords[i][j] = p.Float()
			}
		}
		ds.embeddings[key.String()] = coords
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	root.Get("metadata").ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		col := MetaColumn{Kind: value.Get("kind").String()}
		switch col.Kind {
		case KindCategorical:
			for _, l := range value.Get("labels").Array() {
				col.Labels = append(col.Labels, l.String())
			}
			if len(col.Labels) != n {
				parseErr = fmt.Errorf("metadata[%s]: %d labels for %d cells", name, len(col.Labels), n)
				return false
			}
		case KindNumeric:
			col.Values = numberVector(value.Get("values"), n)
			if len(col.Values) != n {
				parseErr = fmt.Errorf("metadata[%s]: %d values for %d cells", name, len(col.Values), n)
				return false
			}
		}
		ds.meta[name] = col
		ds.metaOrder = append(ds.metaOrder, name)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	root.Get("gene_annotations").ForEach(func(key, value gjson.Result) bool {
		info := GeneInfo{Biotype: value.Get("biotype").String()}
		for _, tr := range value.Get("transcripts").Array() {
			info.Transcripts = append(info.Transcripts, tr.String())
		}
		ds.geneInfo[key.String()] = info
		return true
	})

	return ds, nil
}

// LoadMarkerTable reads the ranked marker table produced by an upstream
// marker-discovery run: a JSON object mapping group identifier to a ranked
// array of feature identifiers (best first). Group order in the file is
// preserved as the table's group order.
func LoadMarkerTable(path string) (*markers.Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading marker table failed: %w", err)
	}
	return ParseMarkerTable(raw)
}

// ParseMarkerTable extracts a marker table from raw JSON.
func ParseMarkerTable(raw []byte) (*markers.Table, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("marker table: not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, fmt.Errorf("marker table: root must be a JSON object")
	}
	tbl := markers.NewTable()
	var parseErr error
	root.ForEach(func(key, value gjson.Result) bool {
		if !value.IsArray() {
			parseErr = fmt.Errorf("marker table: group %q is not an array", key.String())
			return false
		}
		var feats []string
		for _, f := range value.Array() {
			feats = append(feats, f.String())
		}
		tbl.Add(key.String(), feats...)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	if tbl.Len() == 0 {
		return nil, fmt.Errorf("marker table: no groups")
	}
	return tbl, nil
}

// numberVector reads a JSON number array, coercing nulls to NaN so missing
// measurements survive the round trip.
func numberVector(value gjson.Result, capHint int) []float64 {
	out := make([]float64, 0, capHint)
	for _, v := range value.Array() {
		if v.Type == gjson.Null {
			out = append(out, math.NaN())
			continue
		}
		out = append(out, v.Float())
	}
	return out
}
