package vecmath

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/mfeed/internal/pkg/errors"
)

func randomVector(r *rand.Rand) []float32 {
	v := make([]float32, Dim)
	for i := range v {
		v[i] = float32(r.NormFloat64())
	}
	return v
}

func axis(i int) []float32 {
	v := make([]float32, Dim)
	v[i] = 1
	return v
}

func TestDimensionMismatch(t *testing.T) {
	short := make([]float32, 3)
	_, err := Normalize(short)
	require.ErrorIs(t, err, appErr.ErrDimensionMismatch)
	_, err = CosineSimilarity(short, axis(0))
	require.ErrorIs(t, err, appErr.ErrDimensionMismatch)
	_, err = CosineSimilarity(axis(0), short)
	require.ErrorIs(t, err, appErr.ErrDimensionMismatch)
	_, err = BatchSimilarity(axis(0), [][]float32{axis(1), short})
	require.ErrorIs(t, err, appErr.ErrDimensionMismatch)
	_, err = DiversityPenalty(short, nil, 0.9)
	require.ErrorIs(t, err, appErr.ErrDimensionMismatch)
	_, err = Dot(axis(0), short)
	require.ErrorIs(t, err, appErr.ErrDimensionMismatch)
}

func TestNormalize(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	v, err := Normalize(randomVector(r))
	require.NoError(t, err)
	require.InDelta(t, 1.0, norm(v), 1e-5)

	zero := make([]float32, Dim)
	out, err := Normalize(zero)
	require.NoError(t, err)
	require.True(t, IsZero(out))
}

func TestCosineSelfSimilarity(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 20; i++ {
		v, err := Normalize(randomVector(r))
		require.NoError(t, err)
		s, err := CosineSimilarity(v, v)
		require.NoError(t, err)
		require.InDelta(t, 1.0, s, 1e-5)
	}
}

func TestCosineSymmetric(t *testing.T) {
	r := rand.New(rand.NewSource(13))
	for i := 0; i < 20; i++ {
		a, b := randomVector(r), randomVector(r)
		ab, err := CosineSimilarity(a, b)
		require.NoError(t, err)
		ba, err := CosineSimilarity(b, a)
		require.NoError(t, err)
		require.Equal(t, ab, ba)
		require.LessOrEqual(t, ab, float32(1))
		require.GreaterOrEqual(t, ab, float32(-1))
	}
}

func TestCosineZeroVector(t *testing.T) {
	s, err := CosineSimilarity(make([]float32, Dim), axis(3))
	require.NoError(t, err)
	require.Equal(t, float32(0), s)
}

func TestBatchMatchesPairwise(t *testing.T) {
	r := rand.New(rand.NewSource(17))
	query := randomVector(r)
	matrix := make([][]float32, 16)
	for i := range matrix {
		matrix[i] = randomVector(r)
	}
	matrix[5] = make([]float32, Dim)
	scores, err := BatchSimilarity(query, matrix)
	require.NoError(t, err)
	require.Len(t, scores, len(matrix))
	for i, row := range matrix {
		want, err := CosineSimilarity(query, row)
		require.NoError(t, err)
		require.Equal(t, want, scores[i], "row %d", i)
	}
}

func TestTemporalDecay(t *testing.T) {
	for _, rate := range []float64{0.001, 0.01, 0.5, 3} {
		require.Equal(t, 1.0, TemporalDecay(0, rate))
		prev := 1.0
		for age := 1.0; age <= 200; age += 7 {
			d := TemporalDecay(age, rate)
			require.Less(t, d, prev)
			require.Greater(t, d, 0.0)
			prev = d
		}
	}
	require.InDelta(t, math.Exp(-0.2), TemporalDecay(20, 0.01), 1e-12)
	require.Equal(t, 1.0, TemporalDecay(-5, 0.1))
}

func TestDiversityPenalty(t *testing.T) {
	cand := axis(0)
	near := axis(0)
	far := axis(1)

	p, err := DiversityPenalty(cand, nil, 0.9)
	require.NoError(t, err)
	require.Equal(t, 1.0, p)

	p, err = DiversityPenalty(cand, [][]float32{far}, 0.9)
	require.NoError(t, err)
	require.Equal(t, 1.0, p)

	p, err = DiversityPenalty(cand, [][]float32{near}, 0.9)
	require.NoError(t, err)
	require.InDelta(t, 1/1.5, p, 1e-12)

	p, err = DiversityPenalty(cand, [][]float32{near, far, near}, 0.9)
	require.NoError(t, err)
	require.InDelta(t, 0.5, p, 1e-12)
}

func TestMean(t *testing.T) {
	m, err := Mean([][]float32{axis(0), axis(1)}, []float64{1, 1})
	require.NoError(t, err)
	require.InDelta(t, 1/math.Sqrt2, m[0], 1e-6)
	require.InDelta(t, 1/math.Sqrt2, m[1], 1e-6)

	m, err = Mean([][]float32{axis(0), axis(1)}, []float64{1, 0})
	require.NoError(t, err)
	require.InDelta(t, 1.0, m[0], 1e-6)
	require.Equal(t, float32(0), m[1])

	m, err = Mean(nil, nil)
	require.NoError(t, err)
	require.True(t, IsZero(m))

	_, err = Mean([][]float32{axis(0)}, []float64{1, 2})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}
