package markers

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMitoRibo(t *testing.T) {
	pred := MitoRibo()
	for _, f := range []string{"MT-CO1", "mt-Nd1", "RPL13A", "RPS6", "MRPL12"} {
		assert.True(t, pred(f), f)
	}
	for _, f := range []string{"CD3D", "TRPS1", "NRPL"} {
		assert.False(t, pred(f), f)
	}
}

func TestAnyAndInSet(t *testing.T) {
	assert.Nil(t, Any())
	assert.Nil(t, Any(nil, nil))
	assert.Nil(t, InSet(nil))

	pseudo := InSet(map[string]bool{"GM42418": true})
	combined := Any(MitoRibo(), pseudo)
	assert.True(t, combined("GM42418"))
	assert.True(t, combined("MT-CO1"))
	assert.False(t, combined("CD3D"))
}

func TestMatchPattern(t *testing.T) {
	assert.Nil(t, MatchPattern(nil))
	pred := MatchPattern(regexp.MustCompile(`^Gm\d+$`))
	assert.True(t, pred("Gm12345"))
	assert.False(t, pred("Gapdh"))
}

func TestTechnicalFilter(t *testing.T) {
	pseudo := map[string]bool{"GM42418": true}

	for _, mode := range []string{"", "none", "NONE"} {
		pred, ok := TechnicalFilter(mode, pseudo)
		require.True(t, ok, mode)
		assert.Nil(t, pred)
	}

	pred, ok := TechnicalFilter("mito-ribo", pseudo)
	require.True(t, ok)
	assert.True(t, pred("RPS6"))
	assert.False(t, pred("GM42418"))

	pred, ok = TechnicalFilter("both", pseudo)
	require.True(t, ok)
	assert.True(t, pred("RPS6"))
	assert.True(t, pred("GM42418"))

	_, ok = TechnicalFilter("ribosomal-only", pseudo)
	assert.False(t, ok)
}
