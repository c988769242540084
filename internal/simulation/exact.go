package simulation

import "fmt"

// maxExactSetSize bounds the permutation enumeration in SetProbability.
const maxExactSetSize = 8

// OrderProbability returns the closed-form Plackett-Luce probability that the
// given ids finish first, second, ... in exactly that order. A position whose
// remaining mass is zero is scored as a uniform pick among the remaining
// competitors, matching FallbackUniform.
func OrderProbability(dist *Distribution, ids ...string) (float64, error) {
	indices, err := resolveIndices(dist, ids)
	if err != nil {
		return 0, err
	}

	placed := make([]bool, dist.Len())
	prob := 1.0
	for _, idx := range indices {
		remaining := 0.0
		count := 0
		for i, p := range dist.probs {
			if !placed[i] {
				remaining += p
				count++
			}
		}
		if remaining > 0 {
			prob *= dist.probs[idx] / remaining
		} else {
			prob /= float64(count)
		}
		placed[idx] = true
	}
	return prob, nil
}

// SetProbability returns the probability that the given ids occupy the first
// len(ids) positions in any order.
func SetProbability(dist *Distribution, ids ...string) (float64, error) {
	if len(ids) > maxExactSetSize {
		return 0, NewInvalidInputError("ids", fmt.Sprintf("at most %d ids are supported", maxExactSetSize))
	}
	if _, err := resolveIndices(dist, ids); err != nil {
		return 0, err
	}

	perm := append([]string(nil), ids...)
	total := 0.0
	var walk func(k int) error
	walk = func(k int) error {
		if k == len(perm) {
			p, err := OrderProbability(dist, perm...)
			if err != nil {
				return err
			}
			total += p
			return nil
		}
		for i := k; i < len(perm); i++ {
			perm[k], perm[i] = perm[i], perm[k]
			if err := walk(k + 1); err != nil {
				return err
			}
			perm[k], perm[i] = perm[i], perm[k]
		}
		return nil
	}
	if err := walk(0); err != nil {
		return 0, err
	}
	return total, nil
}

func resolveIndices(dist *Distribution, ids []string) ([]int, error) {
	if dist == nil {
		return nil, NewInvalidInputError("distribution", "distribution is required")
	}
	if len(ids) == 0 || len(ids) > dist.Len() {
		return nil, NewInvalidInputError("ids", fmt.Sprintf("expected between 1 and %d ids, got %d", dist.Len(), len(ids)))
	}
	seen := make(map[int]bool, len(ids))
	indices := make([]int, len(ids))
	for i, id := range ids {
		idx, ok := dist.Index(id)
		if !ok {
			return nil, NewInvalidInputError("ids", fmt.Sprintf("unknown competitor %q", id))
		}
		if seen[idx] {
			return nil, NewDuplicateCompetitorError(id)
		}
		seen[idx] = true
		indices[i] = idx
	}
	return indices, nil
}
