// Package cyclomatic implements the cyclomatic complexity metric over
// spaces: the per-language decision classifier, the open accumulator of a
// space and the finalized summary that spaces and files merge into.
package cyclomatic

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Stats is the accumulator of a space that is still open during traversal.
//
// The classifier increments the local complexity while the space is open.
// Nested spaces are folded in through Absorb, and Finalize closes the space
// and yields its Summary. A Stats must be created with NewStats.
type Stats struct {
	local float64
	sum   float64
	n     int
	max   float64
	min   float64
}

// NewStats returns the accumulator of a freshly opened space: one implicit
// linear path, one space, no finalized extrema.
func NewStats() Stats {
	return Stats{
		local: 1,
		sum:   0,
		n:     1,
		max:   0,
		min:   math.MaxFloat64,
	}
}

// Increment records one decision point directly inside the space.
func (s *Stats) Increment() {
	s.local++
}

// Local returns the complexity contributed by decision points directly
// inside the space, excluding nested spaces.
func (s *Stats) Local() float64 {
	return s.local
}

// Absorb merges the summary of a finalized nested space into this one.
func (s *Stats) Absorb(child Summary) {
	s.max = math.Max(s.max, child.max)
	s.min = math.Min(s.min, child.min)
	s.sum += child.sum
	s.n += child.n
}

// Finalize closes the space. Its own local complexity takes part in the
// extrema and the sum exactly once, here.
func (s Stats) Finalize() Summary {
	return Summary{
		local: s.local,
		sum:   s.sum + s.local,
		n:     s.n,
		max:   math.Max(s.max, s.local),
		min:   math.Min(s.min, s.local),
	}
}

// Summary is the finalized cyclomatic statistic of one or more spaces.
// Only finalized values can be merged, so the min sentinel of an open
// accumulator never reaches a merge.
type Summary struct {
	local float64
	sum   float64
	n     int
	max   float64
	min   float64
}

// Merge combines two summaries into the summary of the union of their
// spaces. It is commutative and associative. The result no longer belongs
// to a single space, so its local complexity is zero.
func (s Summary) Merge(other Summary) Summary {
	return Summary{
		sum: s.sum + other.sum,
		n:   s.n + other.n,
		max: math.Max(s.max, other.max),
		min: math.Min(s.min, other.min),
	}
}

// MergeAll folds summaries left to right. It reports false when there is
// nothing to merge.
func MergeAll(summaries []Summary) (Summary, bool) {
	if len(summaries) == 0 {
		return Summary{}, false
	}
	acc := summaries[0]
	for _, s := range summaries[1:] {
		acc = acc.Merge(s)
	}
	return acc, true
}

// Local returns the local complexity of the space this summary was
// finalized from, or zero for a summary produced by Merge.
func (s Summary) Local() float64 { return s.local }

// Sum returns the total local complexity across all spaces.
func (s Summary) Sum() float64 { return s.sum }

// Count returns the number of spaces represented.
func (s Summary) Count() int { return s.n }

// Average returns Sum divided by Count.
func (s Summary) Average() float64 {
	if s.n == 0 {
		return 0
	}
	return s.sum / float64(s.n)
}

// Max returns the largest local complexity among the spaces.
func (s Summary) Max() float64 { return s.max }

// Min returns the smallest local complexity among the spaces.
func (s Summary) Min() float64 { return s.min }

// IsZero reports whether the summary was never finalized.
func (s Summary) IsZero() bool { return s.n == 0 }

// String renders the summary as "sum: S, average: A, min: m, max: M".
func (s Summary) String() string {
	return fmt.Sprintf("sum: %s, average: %s, min: %s, max: %s",
		formatFloat(s.Sum()), formatFloat(s.Average()), formatFloat(s.Min()), formatFloat(s.Max()))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Record is the serialized form of a Summary.
type Record struct {
	Sum     float64 `json:"sum"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// Record returns the flat reporting record (sum, average, min, max).
func (s Summary) Record() Record {
	return Record{
		Sum:     s.Sum(),
		Average: s.Average(),
		Min:     s.Min(),
		Max:     s.Max(),
	}
}

// MarshalJSON writes the flat record in field order sum, average, min, max.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Record())
}

// State is the complete merge state of a Summary, for persistence.
type State struct {
	Local float64 `json:"local"`
	Sum   float64 `json:"sum"`
	N     int     `json:"n"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
}

// State exports the merge state, which the flat record drops.
func (s Summary) State() State {
	return State{Local: s.local, Sum: s.sum, N: s.n, Max: s.max, Min: s.min}
}

// Summary restores a summary from its state.
func (st State) Summary() (Summary, error) {
	if st.N < 1 {
		return Summary{}, fmt.Errorf("cyclomatic state: space count %d < 1", st.N)
	}
	if st.Min > st.Max {
		return Summary{}, fmt.Errorf("cyclomatic state: min %v > max %v", st.Min, st.Max)
	}
	return Summary{local: st.Local, sum: st.Sum, n: st.N, max: st.Max, min: st.Min}, nil
}
