package scoring

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	appErr "github.com/xxxsen/mfeed/internal/pkg/errors"
)

// Default blend weights. They need not sum to 1, Score normalizes.
const (
	DefaultSimilarityWeight = 0.40
	DefaultTemporalWeight   = 0.20
	DefaultDiversityWeight  = 0.15
	DefaultEngagementWeight = 0.15
	DefaultPrivacyWeight    = 0.10
)

// Weights holds the five blend weights. Build it with NewWeights so that
// malformed values are caught at construction time.
type Weights struct {
	Similarity float64 `json:"similarity"`
	Temporal   float64 `json:"temporal"`
	Diversity  float64 `json:"diversity"`
	Engagement float64 `json:"engagement"`
	Privacy    float64 `json:"privacy"`
}

func DefaultWeights() Weights {
	return Weights{
		Similarity: DefaultSimilarityWeight,
		Temporal:   DefaultTemporalWeight,
		Diversity:  DefaultDiversityWeight,
		Engagement: DefaultEngagementWeight,
		Privacy:    DefaultPrivacyWeight,
	}
}

func NewWeights(similarity, temporal, diversity, engagement, privacy float64) (Weights, error) {
	w := Weights{
		Similarity: similarity,
		Temporal:   temporal,
		Diversity:  diversity,
		Engagement: engagement,
		Privacy:    privacy,
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

// Validate rejects negative, NaN or infinite weights and an all-zero set.
func (w Weights) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"similarity", w.Similarity},
		{"temporal", w.Temporal},
		{"diversity", w.Diversity},
		{"engagement", w.Engagement},
		{"privacy", w.Privacy},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("weight %s is not finite: %w", f.name, appErr.ErrInvalid)
		}
		if f.value < 0 {
			return fmt.Errorf("weight %s must be >= 0, got %v: %w", f.name, f.value, appErr.ErrInvalid)
		}
	}
	if w.Sum() <= 0 {
		return fmt.Errorf("weights must not all be zero: %w", appErr.ErrInvalid)
	}
	return nil
}

func (w Weights) Sum() float64 {
	return w.Similarity + w.Temporal + w.Diversity + w.Engagement + w.Privacy
}

// Key is a stable textual form used in cache keys.
func (w Weights) Key() string {
	parts := []float64{w.Similarity, w.Temporal, w.Diversity, w.Engagement, w.Privacy}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strconv.FormatFloat(p, 'g', 6, 64))
	}
	return strings.Join(out, "-")
}

// Override is a partial set of weights supplied by a request or a feed
// profile. Nil fields fall back to the base weights.
type Override struct {
	Similarity *float64 `json:"similarity,omitempty"`
	Temporal   *float64 `json:"temporal,omitempty"`
	Diversity  *float64 `json:"diversity,omitempty"`
	Engagement *float64 `json:"engagement,omitempty"`
	Privacy    *float64 `json:"privacy,omitempty"`
}

func (o *Override) Empty() bool {
	return o == nil || (o.Similarity == nil && o.Temporal == nil && o.Diversity == nil && o.Engagement == nil && o.Privacy == nil)
}

// Apply layers o over base and validates the result.
func (o *Override) Apply(base Weights) (Weights, error) {
	if o.Empty() {
		return base, nil
	}
	pick := func(v *float64, fallback float64) float64 {
		if v == nil {
			return fallback
		}
		return *v
	}
	return NewWeights(
		pick(o.Similarity, base.Similarity),
		pick(o.Temporal, base.Temporal),
		pick(o.Diversity, base.Diversity),
		pick(o.Engagement, base.Engagement),
		pick(o.Privacy, base.Privacy),
	)
}
