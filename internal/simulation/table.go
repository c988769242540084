package simulation

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Probability is one estimated probability with its Monte Carlo error.
type Probability struct {
	Value  float64 `json:"probability"`
	StdErr float64 `json:"std_err"`
	Count  int64   `json:"count"`
}

func newProbability(count, trials int64) Probability {
	p := float64(count) / float64(trials)
	return Probability{
		Value:  p,
		StdErr: math.Sqrt(p * (1 - p) / float64(trials)),
		Count:  count,
	}
}

// CompetitorRow is the per-competitor entry of the win and place tables.
type CompetitorRow struct {
	ID string `json:"id"`
	// Model is the normalized input probability of winning.
	Model float64 `json:"model_probability"`
	Probability
}

// CompetitorTable holds one row per input competitor, in input order.
type CompetitorTable struct {
	rows  []CompetitorRow
	index map[string]int
}

// Get returns the row for id.
func (t CompetitorTable) Get(id string) (CompetitorRow, bool) {
	i, ok := t.index[id]
	if !ok {
		return CompetitorRow{}, false
	}
	return t.rows[i], true
}

// Value returns the probability for id, or zero for unknown ids.
func (t CompetitorTable) Value(id string) float64 {
	row, _ := t.Get(id)
	return row.Value
}

// Rows returns a copy of the rows in input order.
func (t CompetitorTable) Rows() []CompetitorRow {
	return append([]CompetitorRow(nil), t.rows...)
}

// Sorted returns the rows by descending probability; ties keep input order.
func (t CompetitorTable) Sorted() []CompetitorRow {
	rows := t.Rows()
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Value > rows[j].Value
	})
	return rows
}

// Len returns the number of rows.
func (t CompetitorTable) Len() int {
	return len(t.rows)
}

// Sum returns the total probability over all rows.
func (t CompetitorTable) Sum() float64 {
	total := 0.0
	for _, r := range t.rows {
		total += r.Value
	}
	return total
}

// MarshalJSON encodes the table as its rows.
func (t CompetitorTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.rows)
}

// TupleRow is one observed finishing tuple, set, or pair.
type TupleRow struct {
	IDs []string `json:"ids"`
	Probability
}

// TupleTable holds observed tuples sorted by descending probability.
type TupleTable struct {
	rows    []TupleRow
	index   map[string]int
	ordered bool
	dist    *Distribution
}

// Get returns the row for the given ids. Unordered and pair tables accept ids in any order.
func (t TupleTable) Get(ids ...string) (TupleRow, bool) {
	if t.dist == nil {
		return TupleRow{}, false
	}
	indices := make([]int, len(ids))
	for i, id := range ids {
		idx, ok := t.dist.Index(id)
		if !ok {
			return TupleRow{}, false
		}
		indices[i] = idx
	}
	if !t.ordered {
		insertionSort(indices)
	}
	i, ok := t.index[string(encodeKey(make([]byte, 2*len(indices)), indices))]
	if !ok {
		return TupleRow{}, false
	}
	return t.rows[i], true
}

// Value returns the probability for ids, or zero if the tuple was never observed.
func (t TupleTable) Value(ids ...string) float64 {
	row, _ := t.Get(ids...)
	return row.Value
}

// Top returns the n most probable rows. n <= 0 returns every row.
func (t TupleTable) Top(n int) []TupleRow {
	if n <= 0 || n > len(t.rows) {
		n = len(t.rows)
	}
	return append([]TupleRow(nil), t.rows[:n]...)
}

// Len returns the number of observed tuples.
func (t TupleTable) Len() int {
	return len(t.rows)
}

// Sum returns the total probability over all observed tuples.
func (t TupleTable) Sum() float64 {
	total := 0.0
	for _, r := range t.rows {
		total += r.Value
	}
	return total
}

// MarshalJSON encodes the table as its rows.
func (t TupleTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.rows)
}

// Metadata describes how a result was produced.
type Metadata struct {
	RunID          uuid.UUID      `json:"run_id"`
	Trials         int            `json:"trials"`
	Depth          int            `json:"depth"`
	Competitors    int            `json:"competitors"`
	Mode           ScoreMode      `json:"mode"`
	Seed           int64          `json:"seed"`
	Workers        int            `json:"workers"`
	BlockSize      int            `json:"block_size"`
	FallbackPolicy FallbackPolicy `json:"fallback_policy"`
	Fallbacks      int64          `json:"fallbacks"`
	// ZeroStrengthTrials counts trials whose lower places went to zero-weight competitors.
	ZeroStrengthTrials int64         `json:"zero_strength_trials"`
	Duration           time.Duration `json:"duration_ns"`
}

// Result holds the probability tables of one simulation run.
type Result struct {
	Metadata  Metadata        `json:"metadata"`
	Win       CompetitorTable `json:"win"`
	Place     CompetitorTable `json:"place"`
	Ordered   TupleTable      `json:"ordered"`
	Unordered TupleTable      `json:"unordered"`
	Pairs     TupleTable      `json:"pairs"`
}

// Distribution returns the normalized input distribution the result was sampled from.
func (r *Result) Distribution() *Distribution {
	return r.Ordered.dist
}

func buildResult(dist *Distribution, tally *Tally, meta Metadata) *Result {
	meta.Fallbacks = tally.fallbacks
	meta.ZeroStrengthTrials = tally.zeroStrength
	trials := tally.trials

	return &Result{
		Metadata:  meta,
		Win:       buildCompetitorTable(dist, tally.wins, trials),
		Place:     buildCompetitorTable(dist, tally.places, trials),
		Ordered:   buildTupleTable(dist, tally.ordered, trials, true),
		Unordered: buildTupleTable(dist, tally.unordered, trials, false),
		Pairs:     buildPairTable(dist, tally, trials),
	}
}

func buildCompetitorTable(dist *Distribution, counts []int64, trials int64) CompetitorTable {
	rows := make([]CompetitorRow, dist.Len())
	for i := range rows {
		rows[i] = CompetitorRow{
			ID:          dist.ID(i),
			Model:       dist.Probability(i),
			Probability: newProbability(counts[i], trials),
		}
	}
	return CompetitorTable{rows: rows, index: dist.index}
}

type keyedRow struct {
	key string
	row TupleRow
}

func buildTupleTable(dist *Distribution, counts map[string]*int64, trials int64, ordered bool) TupleTable {
	keyed := make([]keyedRow, 0, len(counts))
	for key, c := range counts {
		keyed = append(keyed, keyedRow{
			key: key,
			row: TupleRow{IDs: idsOf(dist, decodeKey(key)), Probability: newProbability(*c, trials)},
		})
	}
	return finishTupleTable(dist, keyed, ordered)
}

func buildPairTable(dist *Distribution, tally *Tally, trials int64) TupleTable {
	keyed := make([]keyedRow, 0)
	pair := make([]int, 2)
	for a := 0; a < tally.n; a++ {
		for b := a + 1; b < tally.n; b++ {
			c := tally.pairs[tally.pairIndex(a, b)]
			if c == 0 {
				continue
			}
			pair[0], pair[1] = a, b
			keyed = append(keyed, keyedRow{
				key: string(encodeKey(make([]byte, 4), pair)),
				row: TupleRow{IDs: idsOf(dist, pair), Probability: newProbability(c, trials)},
			})
		}
	}
	return finishTupleTable(dist, keyed, false)
}

// finishTupleTable sorts by descending count with the packed index key as tie-break,
// so the order is identical for identical counters.
func finishTupleTable(dist *Distribution, keyed []keyedRow, ordered bool) TupleTable {
	sort.Slice(keyed, func(i, j int) bool {
		if keyed[i].row.Count != keyed[j].row.Count {
			return keyed[i].row.Count > keyed[j].row.Count
		}
		return keyed[i].key < keyed[j].key
	})

	rows := make([]TupleRow, len(keyed))
	index := make(map[string]int, len(keyed))
	for i, kr := range keyed {
		rows[i] = kr.row
		index[kr.key] = i
	}
	return TupleTable{rows: rows, index: index, ordered: ordered, dist: dist}
}

func idsOf(dist *Distribution, indices []int) []string {
	ids := make([]string, len(indices))
	for i, idx := range indices {
		ids[i] = dist.ID(idx)
	}
	return ids
}
