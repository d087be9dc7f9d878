package analyzer

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_DoneAndFail(t *testing.T) {
	var got []Progress
	tracker := NewTracker(func(p Progress) { got = append(got, p) })

	tracker.Add(3)
	tracker.Done("a.py", 4)
	tracker.Fail("b.txt")
	tracker.Done("c.rs", 2)

	require.Len(t, got, 3)
	assert.Equal(t, Progress{Done: 1, Total: 3, Path: "a.py", Spaces: 4, SpacesSoFar: 4}, got[0])
	assert.Equal(t, Progress{Done: 2, Total: 3, Path: "b.txt", SpacesSoFar: 4, Failed: true}, got[1])
	assert.Equal(t, Progress{Done: 3, Total: 3, Path: "c.rs", Spaces: 2, SpacesSoFar: 6}, got[2])

	assert.Equal(t, 3, tracker.Current())
	assert.Equal(t, 3, tracker.Total())
	assert.Equal(t, 1, tracker.Failed())
	assert.Equal(t, 6, tracker.Spaces())
}

func TestTracker_Concurrent(t *testing.T) {
	var mu sync.Mutex
	var done []int
	tracker := NewTracker(func(p Progress) {
		mu.Lock()
		done = append(done, p.Done)
		mu.Unlock()
	})
	tracker.Add(100)

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Done("file.go", 3)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, tracker.Current())
	assert.Equal(t, 300, tracker.Spaces())
	sort.Ints(done)
	for i, d := range done {
		assert.Equal(t, i+1, d)
	}
}

func TestTracker_NilCallback(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Add(1)
	assert.NotPanics(t, func() { tracker.Done("file.go", 1) })
}

func TestTrackerContext(t *testing.T) {
	assert.Nil(t, TrackerFromContext(context.Background()))

	tracker := NewTracker(nil)
	ctx := WithTracker(context.Background(), tracker)
	assert.Same(t, tracker, TrackerFromContext(ctx))
}
