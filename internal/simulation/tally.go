package simulation

// Tally holds the outcome counters of one worker. It is not safe for concurrent use.
type Tally struct {
	n         int
	depth     int
	trials    int64
	fallbacks int64
	// zeroStrength counts trials that placed zero-weight competitors by fallback.
	zeroStrength int64

	wins   []int64
	places []int64
	// pairs is the upper triangle of the n x n co-membership matrix.
	pairs []int64

	ordered   map[string]*int64
	unordered map[string]*int64

	keyBuf  []byte
	sortBuf []int
}

// NewTally creates an empty tally for n competitors and finishing depth k.
func NewTally(n, depth int) *Tally {
	return &Tally{
		n:         n,
		depth:     depth,
		wins:      make([]int64, n),
		places:    make([]int64, n),
		pairs:     make([]int64, n*(n-1)/2),
		ordered:   make(map[string]*int64),
		unordered: make(map[string]*int64),
		keyBuf:    make([]byte, 2*depth),
		sortBuf:   make([]int, depth),
	}
}

// Record adds one trial outcome. order holds dense indices of the first k finishers.
func (t *Tally) Record(order []int, kind fallbackKind) {
	t.trials++
	switch kind {
	case fallbackNumeric:
		t.fallbacks++
	case fallbackZeroStrength:
		t.zeroStrength++
	}

	t.wins[order[0]]++
	for i, a := range order {
		t.places[a]++
		for _, b := range order[i+1:] {
			t.pairs[t.pairIndex(a, b)]++
		}
	}

	increment(t.ordered, encodeKey(t.keyBuf, order))

	sorted := t.sortBuf[:len(order)]
	copy(sorted, order)
	insertionSort(sorted)
	increment(t.unordered, encodeKey(t.keyBuf, sorted))
}

// Merge adds every counter of other into t.
func (t *Tally) Merge(other *Tally) {
	t.trials += other.trials
	t.fallbacks += other.fallbacks
	t.zeroStrength += other.zeroStrength
	for i, c := range other.wins {
		t.wins[i] += c
	}
	for i, c := range other.places {
		t.places[i] += c
	}
	for i, c := range other.pairs {
		t.pairs[i] += c
	}
	mergeCounts(t.ordered, other.ordered)
	mergeCounts(t.unordered, other.unordered)
}

// Trials returns the number of recorded trials.
func (t *Tally) Trials() int64 {
	return t.trials
}

// Fallbacks returns how many trials needed the fallback policy because of
// numeric underflow or overflow.
func (t *Tally) Fallbacks() int64 {
	return t.fallbacks
}

// ZeroStrengthTrials returns how many trials placed zero-weight competitors by fallback.
func (t *Tally) ZeroStrengthTrials() int64 {
	return t.zeroStrength
}

// WinCount returns the win counter of dense index i.
func (t *Tally) WinCount(i int) int64 {
	return t.wins[i]
}

// PlaceCount returns the top-k counter of dense index i.
func (t *Tally) PlaceCount(i int) int64 {
	return t.places[i]
}

// PairCount returns the co-membership counter of two distinct dense indices.
func (t *Tally) PairCount(a, b int) int64 {
	return t.pairs[t.pairIndex(a, b)]
}

// OrderedCount returns the counter of one ordered finishing tuple.
func (t *Tally) OrderedCount(order ...int) int64 {
	return lookup(t.ordered, encodeKey(make([]byte, 2*len(order)), order))
}

// UnorderedCount returns the counter of one finishing set, in any order.
func (t *Tally) UnorderedCount(set ...int) int64 {
	sorted := append([]int(nil), set...)
	insertionSort(sorted)
	return lookup(t.unordered, encodeKey(make([]byte, 2*len(sorted)), sorted))
}

func (t *Tally) pairIndex(a, b int) int {
	if a > b {
		a, b = b, a
	}
	return a*(2*t.n-a-1)/2 + (b - a - 1)
}

// encodeKey packs dense indices as big-endian uint16 so byte order matches index order.
func encodeKey(buf []byte, indices []int) []byte {
	buf = buf[:2*len(indices)]
	for i, idx := range indices {
		buf[2*i] = byte(idx >> 8)
		buf[2*i+1] = byte(idx)
	}
	return buf
}

func decodeKey(key string) []int {
	out := make([]int, len(key)/2)
	for i := range out {
		out[i] = int(key[2*i])<<8 | int(key[2*i+1])
	}
	return out
}

func increment(counts map[string]*int64, key []byte) {
	if c, ok := counts[string(key)]; ok {
		*c++
		return
	}
	one := int64(1)
	counts[string(key)] = &one
}

func lookup(counts map[string]*int64, key []byte) int64 {
	if c, ok := counts[string(key)]; ok {
		return *c
	}
	return 0
}

func mergeCounts(dst, src map[string]*int64) {
	for k, v := range src {
		if c, ok := dst[k]; ok {
			*c += *v
			continue
		}
		n := *v
		dst[k] = &n
	}
}

// insertionSort is enough for finishing depths of a handful of positions.
func insertionSort(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j] < a[j-1]; j-- {
			a[j], a[j-1] = a[j-1], a[j]
		}
	}
}
