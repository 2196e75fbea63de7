package parallel

// ValueLoc pairs a reduced value with the index of the cell it came
// from. Combine is associative with a documented tie-break: on equal
// values the first occurring (lower) index wins, so reductions are
// deterministic regardless of partition order.
type ValueLoc struct {
	Value float64
	Index int
}

// CombineMin merges two minimum candidates.
func CombineMin(a, b ValueLoc) ValueLoc {
	if b.Value < a.Value || (b.Value == a.Value && b.Index < a.Index) {
		return b
	}
	return a
}

// CombineMax merges two maximum candidates.
func CombineMax(a, b ValueLoc) ValueLoc {
	if b.Value > a.Value || (b.Value == a.Value && b.Index < a.Index) {
		return b
	}
	return a
}

// Min reduces vals[0:n] to its minimum. n may be shorter than the
// backing array when ghost entries must be excluded.
func Min(vals []float64, n int) float64 {
	m := vals[0]
	for c := 1; c < n; c++ {
		if vals[c] < m {
			m = vals[c]
		}
	}
	return m
}

// MinMaxLoc reduces vals[0:n] to (min, max) with originating indices.
func MinMaxLoc(vals []float64, n int) (lo, hi ValueLoc) {
	lo = ValueLoc{Value: vals[0], Index: 0}
	hi = lo
	for c := 1; c < n; c++ {
		lo = CombineMin(lo, ValueLoc{Value: vals[c], Index: c})
		hi = CombineMax(hi, ValueLoc{Value: vals[c], Index: c})
	}
	return
}

// Comm is the cross-rank reduction contract. The estimator only ever
// needs scalar min/max, counter sums, and min/max with the owning
// rank's coordinates broadcast alongside the value.
type Comm interface {
	RankID() int
	NRanks() int
	Min(v float64) float64
	Max(v float64) float64
	Sum(counts []int64)
	MinLoc(v float64, xyz [3]float64) (float64, [3]float64)
	MaxLoc(v float64, xyz [3]float64) (float64, [3]float64)
}

// SingleRank is the serial Comm: every reduction is the identity.
type SingleRank struct{}

func (SingleRank) RankID() int           { return 0 }
func (SingleRank) NRanks() int           { return 1 }
func (SingleRank) Min(v float64) float64 { return v }
func (SingleRank) Max(v float64) float64 { return v }
func (SingleRank) Sum([]int64)           {}

func (SingleRank) MinLoc(v float64, xyz [3]float64) (float64, [3]float64) { return v, xyz }
func (SingleRank) MaxLoc(v float64, xyz [3]float64) (float64, [3]float64) { return v, xyz }
