// Package progress draws the file progress bar of the cyclomatic command.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/panbanda/spaces/pkg/analyzer"
)

// Tracker is a progress bar over files that also shows how many spaces
// have been found.
type Tracker struct {
	bar   *progressbar.ProgressBar
	label string
	out   io.Writer

	mu     sync.Mutex
	spaces int
}

// NewTracker creates a progress bar on stderr with the given label and
// total file count.
func NewTracker(label string, total int) *Tracker {
	return NewTrackerTo(os.Stderr, label, total)
}

// NewTrackerTo creates a progress bar that renders to w.
func NewTrackerTo(w io.Writer, label string, total int) *Tracker {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return &Tracker{bar: bar, label: label, out: w}
}

// Report is an analyzer.ProgressFunc. It advances the bar and shows the
// running space count next to the label.
func (t *Tracker) Report(p analyzer.Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// workers report out of order; the shown count never goes down
	if p.SpacesSoFar > t.spaces {
		t.spaces = p.SpacesSoFar
	}
	t.bar.Describe(fmt.Sprintf("%s %s", t.label, spacesLabel(t.spaces)))
	_ = t.bar.Add(1)
}

func spacesLabel(n int) string {
	if n == 1 {
		return "(1 space)"
	}
	return fmt.Sprintf("(%d spaces)", n)
}

// FinishSuccess clears the bar, leaving no output.
func (t *Tracker) FinishSuccess() {
	_ = t.bar.Finish()
	_ = t.bar.Clear()
}

// FinishError clears the bar and prints the error under the label.
func (t *Tracker) FinishError(err error) {
	t.FinishSuccess()
	fmt.Fprintf(t.out, "  %s error: %v\n", t.label, err)
}
