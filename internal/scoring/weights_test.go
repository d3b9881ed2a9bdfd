package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/mfeed/internal/pkg/errors"
)

func TestNewWeightsValidation(t *testing.T) {
	tests := []struct {
		name string
		w    [5]float64
		ok   bool
	}{
		{name: "defaults", w: [5]float64{0.4, 0.2, 0.15, 0.15, 0.1}, ok: true},
		{name: "unnormalized", w: [5]float64{4, 2, 1, 1, 1}, ok: true},
		{name: "single signal", w: [5]float64{1, 0, 0, 0, 0}, ok: true},
		{name: "negative", w: [5]float64{1, -0.1, 0, 0, 0}},
		{name: "all zero", w: [5]float64{}},
		{name: "nan", w: [5]float64{math.NaN(), 1, 1, 1, 1}},
		{name: "inf", w: [5]float64{math.Inf(1), 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWeights(tt.w[0], tt.w[1], tt.w[2], tt.w[3], tt.w[4])
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, appErr.ErrInvalid)
		})
	}
}

func TestDefaultWeightsValid(t *testing.T) {
	require.NoError(t, DefaultWeights().Validate())
	require.InDelta(t, 1.0, DefaultWeights().Sum(), 1e-12)
}

func TestOverrideApply(t *testing.T) {
	base := DefaultWeights()
	var nilOverride *Override
	got, err := nilOverride.Apply(base)
	require.NoError(t, err)
	require.Equal(t, base, got)

	sim := 2.0
	got, err = (&Override{Similarity: &sim}).Apply(base)
	require.NoError(t, err)
	require.Equal(t, 2.0, got.Similarity)
	require.Equal(t, base.Temporal, got.Temporal)

	neg := -1.0
	_, err = (&Override{Privacy: &neg}).Apply(base)
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestWeightsKeyStable(t *testing.T) {
	a := DefaultWeights()
	b := DefaultWeights()
	require.Equal(t, a.Key(), b.Key())
	b.Privacy = 0.2
	require.NotEqual(t, a.Key(), b.Key())
}
