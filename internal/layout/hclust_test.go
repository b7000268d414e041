package layout

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHclustOrder_GroupsObviousClusters(t *testing.T) {
	// Two tight clusters far apart: leaves of each cluster must end up
	// contiguous regardless of linkage.
	vecs := [][]float64{
		{0, 0}, {100, 100}, {0.1, 0}, {100.1, 100}, {0, 0.1}, {100, 100.1},
	}
	left := map[int]bool{0: true, 2: true, 4: true}

	for method := range linkageNames {
		t.Run(method, func(t *testing.T) {
			order := hclustOrder(vecs, method)
			require.Len(t, order, len(vecs))

			perm := append([]int(nil), order...)
			sort.Ints(perm)
			assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, perm, "must be a permutation")

			// Membership flips exactly once along the leaf order.
			flips := 0
			for i := 1; i < len(order); i++ {
				if left[order[i]] != left[order[i-1]] {
					flips++
				}
			}
			assert.Equal(t, 1, flips, "clusters should be contiguous")
		})
	}
}

func TestHclustOrder_Deterministic(t *testing.T) {
	vecs := [][]float64{{0}, {1}, {2}, {3}, {10}, {11}}
	first := hclustOrder(vecs, "average")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, hclustOrder(vecs, "average"))
	}
}

func TestHclustOrder_Small(t *testing.T) {
	assert.Nil(t, hclustOrder(nil, "ward"))
	assert.Equal(t, []int{0}, hclustOrder([][]float64{{1, 2}}, "ward"))
	assert.ElementsMatch(t, []int{0, 1}, hclustOrder([][]float64{{0}, {5}}, "single"))
}

func TestIsLinkage(t *testing.T) {
	for _, m := range []string{"ward", "average", "complete", "single", "mcquitty", "median", "centroid"} {
		assert.True(t, IsLinkage(m), m)
	}
	assert.False(t, IsLinkage("kmeans"))
	assert.False(t, IsLinkage(MethodByMetadata))
}

func TestLanceWilliamsAverage(t *testing.T) {
	ai, aj, b, g := lanceWilliams("average", 3, 1, 2)
	assert.InDelta(t, 0.75, ai, 1e-9)
	assert.InDelta(t, 0.25, aj, 1e-9)
	assert.Zero(t, b)
	assert.Zero(t, g)
}
