// Package vecmath holds the fixed-width vector kernel used by ranking.
// Every function is synchronous, lock free and performs no I/O.
package vecmath

import (
	"fmt"
	"math"

	appErr "github.com/xxxsen/mfeed/internal/pkg/errors"
)

// Dim is the width of every interest and content embedding.
const Dim = 1024

// duplicateStep is the per-match penalty used by DiversityPenalty.
const duplicateStep = 0.5

func checkDim(v []float32) error {
	if len(v) != Dim {
		return fmt.Errorf("vector has %d components, want %d: %w", len(v), Dim, appErr.ErrDimensionMismatch)
	}
	return nil
}

// CheckDim validates that v has exactly Dim components.
func CheckDim(v []float32) error {
	return checkDim(v)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v. The zero vector is returned unchanged.
func Normalize(v []float32) ([]float32, error) {
	if err := checkDim(v); err != nil {
		return nil, err
	}
	out := make([]float32, Dim)
	n := norm(v)
	if n == 0 {
		copy(out, v)
		return out, nil
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out, nil
}

// Dot computes the inner product. Inputs are expected to be normalized
// already when the result is used as a similarity.
func Dot(a, b []float32) (float32, error) {
	if err := checkDim(a); err != nil {
		return 0, err
	}
	if err := checkDim(b); err != nil {
		return 0, err
	}
	return float32(dot(a, b)), nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func cosine(a, b []float32, na, nb float64) float32 {
	if na == 0 || nb == 0 {
		return 0
	}
	s := dot(a, b) / (na * nb)
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return float32(s)
}

// CosineSimilarity returns a value in [-1,1]; 0 when either side is the zero vector.
func CosineSimilarity(a, b []float32) (float32, error) {
	if err := checkDim(a); err != nil {
		return 0, err
	}
	if err := checkDim(b); err != nil {
		return 0, err
	}
	return cosine(a, b, norm(a), norm(b)), nil
}

// BatchSimilarity scores every row of matrix against query. It yields the
// same values as calling CosineSimilarity row by row.
func BatchSimilarity(query []float32, matrix [][]float32) ([]float32, error) {
	if err := checkDim(query); err != nil {
		return nil, err
	}
	nq := norm(query)
	scores := make([]float32, len(matrix))
	for i, row := range matrix {
		if err := checkDim(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		scores[i] = cosine(query, row, nq, norm(row))
	}
	return scores, nil
}

// TemporalDecay is exp(-rate*age). Negative ages are treated as zero so the
// result stays in (0,1].
func TemporalDecay(ageHours, rate float64) float64 {
	if ageHours < 0 {
		ageHours = 0
	}
	return math.Exp(-rate * ageHours)
}

// DiversityPenalty counts preceding vectors more similar than threshold to
// candidate and returns 1/(1+matches*0.5). Only items presented before the
// candidate are passed in, so the first item of a near-duplicate cluster
// keeps a full score.
func DiversityPenalty(candidate []float32, preceding [][]float32, threshold float64) (float64, error) {
	if err := checkDim(candidate); err != nil {
		return 0, err
	}
	nc := norm(candidate)
	matches := 0
	for i, p := range preceding {
		if err := checkDim(p); err != nil {
			return 0, fmt.Errorf("preceding %d: %w", i, err)
		}
		if float64(cosine(candidate, p, nc, norm(p))) > threshold {
			matches++
		}
	}
	return DuplicatePenalty(matches), nil
}

// DuplicatePenalty is the multiplier for a candidate with matches near
// duplicates shown before it.
func DuplicatePenalty(matches int) float64 {
	if matches <= 0 {
		return 1.0
	}
	return 1 / (1 + float64(matches)*duplicateStep)
}

// Mean computes the weighted average of vectors and normalizes it. A nil
// weights slice weighs every vector equally. Non-positive weights are skipped.
func Mean(vectors [][]float32, weights []float64) ([]float32, error) {
	if weights != nil && len(weights) != len(vectors) {
		return nil, fmt.Errorf("got %d weights for %d vectors: %w", len(weights), len(vectors), appErr.ErrInvalid)
	}
	acc := make([]float64, Dim)
	var total float64
	for i, v := range vectors {
		if err := checkDim(v); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		w := 1.0
		if weights != nil {
			w = weights[i]
		}
		if w <= 0 {
			continue
		}
		total += w
		for j, x := range v {
			acc[j] += w * float64(x)
		}
	}
	out := make([]float32, Dim)
	if total == 0 {
		return out, nil
	}
	for j := range acc {
		out[j] = float32(acc[j] / total)
	}
	return Normalize(out)
}

// IsZero reports whether every component is zero.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
