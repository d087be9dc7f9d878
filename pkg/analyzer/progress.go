package analyzer

import (
	"context"
	"sync/atomic"
)

// Progress describes the analysis state right after one file finished.
type Progress struct {
	// Done counts finished files, failed ones included.
	Done  int
	Total int
	Path  string
	// Spaces is the number of spaces found in Path, zero when it failed.
	Spaces int
	// SpacesSoFar totals Spaces over every finished file.
	SpacesSoFar int
	Failed      bool
}

// ProgressFunc receives one Progress per finished file. It may be called
// from several workers at once.
type ProgressFunc func(Progress)

// SpaceCounter is implemented by per-file results that know how many
// spaces they hold.
type SpaceCounter interface {
	SpaceCount() int
}

// Tracker counts finished files and the spaces found in them. It is safe
// for concurrent use.
type Tracker struct {
	total    atomic.Int64
	done     atomic.Int64
	failed   atomic.Int64
	spaces   atomic.Int64
	callback ProgressFunc
}

// NewTracker creates a tracker. callback may be nil.
func NewTracker(callback ProgressFunc) *Tracker {
	return &Tracker{callback: callback}
}

// Add grows the expected file count by n.
func (t *Tracker) Add(n int) {
	t.total.Add(int64(n))
}

// Done records a successfully analyzed file holding the given number of
// spaces.
func (t *Tracker) Done(path string, spaces int) {
	t.finish(Progress{Path: path, Spaces: spaces})
}

// Fail records a file that could not be analyzed.
func (t *Tracker) Fail(path string) {
	t.failed.Add(1)
	t.finish(Progress{Path: path, Failed: true})
}

func (t *Tracker) finish(p Progress) {
	p.SpacesSoFar = int(t.spaces.Add(int64(p.Spaces)))
	p.Done = int(t.done.Add(1))
	p.Total = int(t.total.Load())
	if t.callback != nil {
		t.callback(p)
	}
}

// Current returns the number of finished files.
func (t *Tracker) Current() int {
	return int(t.done.Load())
}

// Total returns the expected file count.
func (t *Tracker) Total() int {
	return int(t.total.Load())
}

// Failed returns the number of files that could not be analyzed.
func (t *Tracker) Failed() int {
	return int(t.failed.Load())
}

// Spaces returns the number of spaces found so far.
func (t *Tracker) Spaces() int {
	return int(t.spaces.Load())
}

type trackerKey struct{}

// WithTracker returns a context carrying t. The parallel file layer reports
// to it.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey{}, t)
}

// TrackerFromContext returns the tracker carried by ctx, or nil.
func TrackerFromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(trackerKey{}).(*Tracker)
	return t
}
