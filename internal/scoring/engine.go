package scoring

import (
	"sort"

	"github.com/xxxsen/mfeed/internal/vecmath"
)

// Signals are the per-candidate inputs of the blend, each in [0,1].
type Signals struct {
	Similarity     float64 `json:"similarity"`
	Temporal       float64 `json:"temporal"`
	Diversity      float64 `json:"diversity"`
	Engagement     float64 `json:"engagement"`
	Privacy        float64 `json:"privacy"`
	SeenMultiplier float64 `json:"seen_multiplier"`
}

// Score blends the signals with w and applies the seen multiplier.
func Score(w Weights, s Signals) float64 {
	sum := w.Sum()
	if sum <= 0 {
		return 0
	}
	blend := (s.Similarity*w.Similarity +
		s.Temporal*w.Temporal +
		s.Diversity*w.Diversity +
		s.Engagement*w.Engagement +
		s.Privacy*w.Privacy) / sum
	return blend * s.SeenMultiplier
}

// Input is a candidate ready for scoring. Vector must be normalized or nil;
// TopicNovelty is the topic part of the diversity signal.
type Input struct {
	ID           string
	Ctime        int64
	Vector       []float32
	Similarity   float64
	Temporal     float64
	Engagement   float64
	Privacy      float64
	TopicNovelty float64
	Seen         float64
}

// Candidate is a scored, request-scoped entry. It is never persisted.
type Candidate struct {
	ID      string  `json:"id"`
	Ctime   int64   `json:"ctime"`
	Signals Signals `json:"signals"`
	Final   float64 `json:"final"`
}

// Less orders by final score desc, then creation time desc, then id asc.
func Less(a, b Candidate) bool {
	if a.Final != b.Final {
		return a.Final > b.Final
	}
	if a.Ctime != b.Ctime {
		return a.Ctime > b.Ctime
	}
	return a.ID < b.ID
}

func Sort(items []Candidate) {
	sort.SliceStable(items, func(i, j int) bool {
		return Less(items[i], items[j])
	})
}

type Config struct {
	Weights            Weights
	DiversityThreshold float64
	DiversityWindow    int
}

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.DiversityWindow <= 0 {
		cfg.DiversityWindow = 50
	}
	return &Engine{cfg: cfg}
}

// Rank scores inputs and returns them in presentation order.
//
// Selection is greedy: each step scores the remaining inputs with the
// vector diversity penalty against the window of items already selected and
// takes the best one, so a candidate is only penalized for items shown
// before it.
func (e *Engine) Rank(inputs []Input, w Weights) []Candidate {
	pool := make([]Candidate, len(inputs))
	for i, in := range inputs {
		sig := Signals{
			Similarity:     in.Similarity,
			Temporal:       in.Temporal,
			Diversity:      in.TopicNovelty,
			Engagement:     in.Engagement,
			Privacy:        in.Privacy,
			SeenMultiplier: in.Seen,
		}
		pool[i] = Candidate{ID: in.ID, Ctime: in.Ctime, Signals: sig, Final: Score(w, sig)}
	}

	// matches[i] counts window entries near-duplicating input i; every window
	// entry remembers which inputs it matched so eviction can undo it.
	matches := make([]int, len(inputs))
	window := make([][]int, 0, e.cfg.DiversityWindow)
	selected := make([]bool, len(inputs))
	out := make([]Candidate, 0, len(inputs))
	for len(out) < len(inputs) {
		best := -1
		for i := range pool {
			if selected[i] {
				continue
			}
			c := &pool[i]
			c.Signals.Diversity = inputs[i].TopicNovelty * vecmath.DuplicatePenalty(matches[i])
			c.Final = Score(w, c.Signals)
			if best < 0 || Less(*c, pool[best]) {
				best = i
			}
		}
		selected[best] = true
		out = append(out, pool[best])

		vec := inputs[best].Vector
		if len(vec) != vecmath.Dim {
			continue
		}
		if len(window) == e.cfg.DiversityWindow {
			for _, j := range window[0] {
				matches[j]--
			}
			window = window[1:]
		}
		hit := make([]int, 0)
		for j := range inputs {
			if selected[j] || len(inputs[j].Vector) != vecmath.Dim {
				continue
			}
			sim, err := vecmath.Dot(inputs[j].Vector, vec)
			if err != nil || float64(sim) <= e.cfg.DiversityThreshold {
				continue
			}
			matches[j]++
			hit = append(hit, j)
		}
		window = append(window, hit)
	}
	return out
}
