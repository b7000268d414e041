package layout

import (
	"math"
)

// Linkage names accepted for agglomerative column clustering. These mirror
// the classical hclust vocabulary so callers can pass method names through
// from their own configuration unchanged.
var linkageNames = map[string]bool{
	"ward":     true,
	"average":  true,
	"complete": true,
	"single":   true,
	"mcquitty": true,
	"median":   true,
	"centroid": true,
}

// IsLinkage reports whether method names a supported hierarchical linkage.
func IsLinkage(method string) bool { return linkageNames[method] }

// squaredMethods operate on squared Euclidean distances per the
// Lance-Williams formulation.
func usesSquaredDistance(method string) bool {
	switch method {
	case "ward", "centroid", "median":
		return true
	}
	return false
}

// lanceWilliams returns the update coefficients for d(k, i∪j) given the
// cluster sizes ni, nj and nk:
//
//	d(k, i∪j) = ai*d(k,i) + aj*d(k,j) + b*d(i,j) + g*|d(k,i)-d(k,j)|
func lanceWilliams(method string, ni, nj, nk float64) (ai, aj, b, g float64) {
	switch method {
	case "single":
		return 0.5, 0.5, 0, -0.5
	case "complete":
		return 0.5, 0.5, 0, 0.5
	case "average":
		t := ni + nj
		return ni / t, nj / t, 0, 0
	case "mcquitty":
		return 0.5, 0.5, 0, 0
	case "centroid":
		t := ni + nj
		return ni / t, nj / t, -(ni * nj) / (t * t), 0
	case "median":
		return 0.5, 0.5, -0.25, 0
	case "ward":
		t := ni + nj + nk
		return (ni + nk) / t, (nj + nk) / t, -nk / t, 0
	}
	// Callers validate the method before reaching this point.
	return 0.5, 0.5, 0, 0
}

// hclustOrder clusters the sample vectors agglomeratively and returns the
// dendrogram leaf order as indices into vecs. This is the one expensive path
// of the package: the distance matrix alone is O(n²) memory, so callers
// should subsample very large datasets upstream.
func hclustOrder(vecs [][]float64, method string) []int {
	n := len(vecs)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return []int{0}
	}

	squared := usesSquaredDistance(method)
	d := make([][]float64, n)
	for i := range d {
		d[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := sqDist(vecs[i], vecs[j])
			if !squared {
				v = math.Sqrt(v)
			}
			d[i][j] = v
			d[j][i] = v
		}
	}

	active := make([]bool, n)
	size := make([]float64, n)
	leaves := make([][]int, n)
	for i := 0; i < n; i++ {
		active[i] = true
		size[i] = 1
		leaves[i] = []int{i}
	}

	// Cached nearest neighbor per active cluster; refreshed lazily after
	// merges touch the cached target.
	nn := make([]int, n)
	nnd := make([]float64, n)
	refresh := func(i int) {
		nn[i] = -1
		nnd[i] = math.Inf(1)
		for j := 0; j < n; j++ {
			if j == i || !active[j] {
				continue
			}
			if d[i][j] < nnd[i] {
				nnd[i] = d[i][j]
				nn[i] = j
			}
		}
	}
	for i := 0; i < n; i++ {
		refresh(i)
	}

	for merges := 0; merges < n-1; merges++ {
		// Pick the globally closest active pair; ties resolve to the lowest
		// index pair so the dendrogram is reproducible.
		best := -1
		for i := 0; i < n; i++ {
			if !active[i] || nn[i] < 0 {
				continue
			}
			if best < 0 || nnd[i] < nnd[best] {
				best = i
			}
		}
		i, j := best, nn[best]
		if j < i {
			i, j = j, i
		}

		dij := d[i][j]
		for k := 0; k < n; k++ {
			if !active[k] || k == i || k == j {
				continue
			}
			ai, aj, b, g := lanceWilliams(method, size[i], size[j], size[k])
			dki, dkj := d[k][i], d[k][j]
			v := ai*dki + aj*dkj + b*dij + g*math.Abs(dki-dkj)
			d[i][k] = v
			d[k][i] = v
		}

		leaves[i] = append(leaves[i], leaves[j]...)
		size[i] += size[j]
		active[j] = false

		refresh(i)
		for k := 0; k < n; k++ {
			if !active[k] || k == i {
				continue
			}
			if nn[k] == i || nn[k] == j {
				refresh(k)
			} else if d[k][i] < nnd[k] {
				nn[k] = i
				nnd[k] = d[k][i]
			}
		}
	}

	for i := 0; i < n; i++ {
		if active[i] {
			return leaves[i]
		}
	}
	return nil
}

func sqDist(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}
