package simulation

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// FallbackPolicy decides which competitor is placed when the remaining mass is unusable.
type FallbackPolicy string

const (
	// FallbackUniform draws uniformly among the remaining competitors.
	FallbackUniform FallbackPolicy = "uniform"
	// FallbackInputOrder places the remaining competitor that came first in the input.
	FallbackInputOrder FallbackPolicy = "input_order"
)

// ParseFallbackPolicy parses a fallback policy name.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch FallbackPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case FallbackUniform, "":
		return FallbackUniform, nil
	case FallbackInputOrder:
		return FallbackInputOrder, nil
	default:
		return "", NewInvalidInputError("fallback", fmt.Sprintf("unknown fallback policy %q", s))
	}
}

// SourceFactory builds the random source for one block of trials.
type SourceFactory func(seed int64) rand.Source

// fallbackKind reports why a trial used the fallback policy.
type fallbackKind uint8

const (
	fallbackNone fallbackKind = iota
	// fallbackZeroStrength means only competitors entered with zero weight remained.
	fallbackZeroStrength
	// fallbackNumeric means the remaining mass underflowed or was not finite.
	fallbackNumeric
)

// sampler draws Plackett-Luce finishing prefixes. One sampler belongs to one worker.
type sampler struct {
	probs  []float64
	zero   []bool
	active []int
	policy FallbackPolicy
}

func newSampler(dist *Distribution, policy FallbackPolicy) *sampler {
	return &sampler{
		probs:  dist.probs,
		zero:   dist.zero,
		active: make([]int, len(dist.probs)),
		policy: policy,
	}
}

// draw fills out with the first len(out) finishers and reports the strongest
// fallback reason any position needed.
func (s *sampler) draw(rng *rand.Rand, out []int) fallbackKind {
	n := len(s.probs)
	for i := 0; i < n; i++ {
		s.active[i] = i
	}

	kind := fallbackNone
	for pos := range out {
		remaining := s.active[:n-pos]
		if len(remaining) == 1 {
			out[pos] = remaining[0]
			break
		}

		total := 0.0
		for _, idx := range remaining {
			total += s.probs[idx]
		}

		var slot int
		if !(total > 0) || math.IsInf(total, 1) {
			if total == 0 && s.allZeroStrength(remaining) {
				kind = max(kind, fallbackZeroStrength)
			} else {
				kind = fallbackNumeric
			}
			slot = s.fallbackSlot(rng, len(remaining))
		} else {
			slot = s.pick(rng.Float64()*total, remaining)
		}

		out[pos] = remaining[slot]
		// Ordered removal keeps the active set in input order.
		copy(remaining[slot:], remaining[slot+1:])
	}
	return kind
}

func (s *sampler) allZeroStrength(remaining []int) bool {
	for _, idx := range remaining {
		if !s.zero[idx] {
			return false
		}
	}
	return true
}

// pick maps u in [0, total) through the cumulative mass of the active set.
func (s *sampler) pick(u float64, remaining []int) int {
	cumulative := 0.0
	last := -1
	for slot, idx := range remaining {
		p := s.probs[idx]
		if p <= 0 {
			continue
		}
		cumulative += p
		last = slot
		if u < cumulative {
			return slot
		}
	}
	// Rounding can leave u at or just above the accumulated sum.
	return last
}

func (s *sampler) fallbackSlot(rng *rand.Rand, remaining int) int {
	if s.policy == FallbackInputOrder {
		return 0
	}
	return rng.Intn(remaining)
}
