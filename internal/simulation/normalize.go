package simulation

import (
	"fmt"
	"math"
	"strings"
)

// ScoreMode selects how raw competitor scores become probabilities.
type ScoreMode string

const (
	// ModeWeights treats scores as non-negative relative strengths.
	ModeWeights ScoreMode = "weights"
	// ModeLogits treats scores as unconstrained ranker outputs.
	ModeLogits ScoreMode = "logits"
)

// ParseScoreMode parses a score mode name, case-insensitively.
func ParseScoreMode(s string) (ScoreMode, error) {
	switch ScoreMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeWeights:
		return ModeWeights, nil
	case ModeLogits:
		return ModeLogits, nil
	default:
		return "", NewInvalidInputError("mode", fmt.Sprintf("unknown score mode %q", s))
	}
}

// Competitor is one entrant in a single event.
type Competitor struct {
	ID       string  `json:"id" validate:"required"`
	Strength float64 `json:"strength"`
}

// Distribution is the normalized strength vector of one event, aligned with input order.
// It is read-only once built and safe for concurrent use.
type Distribution struct {
	ids   []string
	probs []float64
	index map[string]int
	// zero marks competitors whose weight was exactly zero on input.
	zero []bool
}

// Normalize validates competitors and converts their scores into a probability vector.
func Normalize(competitors []Competitor, mode ScoreMode) (*Distribution, error) {
	if len(competitors) == 0 {
		return nil, NewInvalidInputError("competitors", "at least one competitor is required")
	}

	ids := make([]string, len(competitors))
	scores := make([]float64, len(competitors))
	index := make(map[string]int, len(competitors))
	for i, c := range competitors {
		if c.ID == "" {
			return nil, NewInvalidInputError("id", fmt.Sprintf("competitor at position %d has an empty id", i))
		}
		if _, exists := index[c.ID]; exists {
			return nil, NewDuplicateCompetitorError(c.ID)
		}
		if math.IsNaN(c.Strength) || math.IsInf(c.Strength, 0) {
			return nil, NewInvalidInputError("strength", fmt.Sprintf("competitor %q has non-finite strength", c.ID))
		}
		index[c.ID] = i
		ids[i] = c.ID
		scores[i] = c.Strength
	}

	var (
		probs []float64
		err   error
	)
	switch mode {
	case ModeWeights:
		probs, err = normalizeWeights(scores)
	case ModeLogits:
		probs = softmax(scores)
	default:
		return nil, NewInvalidInputError("mode", fmt.Sprintf("unknown score mode %q", mode))
	}
	if err != nil {
		return nil, err
	}

	zero := make([]bool, len(scores))
	if mode == ModeWeights {
		for i, s := range scores {
			zero[i] = s == 0
		}
	}
	return &Distribution{ids: ids, probs: probs, index: index, zero: zero}, nil
}

func normalizeWeights(weights []float64) ([]float64, error) {
	total := 0.0
	for _, w := range weights {
		if w < 0 {
			return nil, NewDegenerateInputError("negative strength in weights mode")
		}
		total += w
	}
	if total <= 0 {
		return nil, NewDegenerateInputError("strengths sum to zero")
	}
	if math.IsInf(total, 1) {
		return nil, NewDegenerateInputError("strength sum overflows")
	}

	probs := make([]float64, len(weights))
	for i, w := range weights {
		probs[i] = w / total
	}
	return probs, nil
}

// softmax subtracts the maximum before exponentiating so large scores cannot overflow.
func softmax(scores []float64) []float64 {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}

	probs := make([]float64, len(scores))
	total := 0.0
	for i, s := range scores {
		probs[i] = math.Exp(s - maxScore)
		total += probs[i]
	}
	// total >= 1 because the maximum contributes exp(0).
	for i := range probs {
		probs[i] /= total
	}
	return probs
}

// Len returns the number of competitors.
func (d *Distribution) Len() int {
	return len(d.ids)
}

// ID returns the competitor id at dense index i.
func (d *Distribution) ID(i int) string {
	return d.ids[i]
}

// Probability returns the normalized probability at dense index i.
func (d *Distribution) Probability(i int) float64 {
	return d.probs[i]
}

// Index returns the dense index of id.
func (d *Distribution) Index(id string) (int, bool) {
	i, ok := d.index[id]
	return i, ok
}

// Probabilities returns a copy of the probability vector.
func (d *Distribution) Probabilities() []float64 {
	out := make([]float64, len(d.probs))
	copy(out, d.probs)
	return out
}

// ByID returns the probability for each competitor id.
func (d *Distribution) ByID() map[string]float64 {
	out := make(map[string]float64, len(d.ids))
	for i, id := range d.ids {
		out[id] = d.probs[i]
	}
	return out
}
