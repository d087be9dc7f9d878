// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/panbanda/spaces/pkg/analyzer"
	"github.com/panbanda/spaces/pkg/parser"
	"github.com/panbanda/spaces/pkg/source"
	"github.com/sourcegraph/conc/pool"
)

// ErrFileTooLarge is reported for files above the configured size limit.
var ErrFileTooLarge = errors.New("file exceeds size limit")

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e ProcessingError) Unwrap() error {
	return e.Err
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	if e == nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e *ProcessingErrors) Unwrap() []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	errs := make([]error, len(e.Errors))
	for i, pe := range e.Errors {
		errs[i] = pe
	}
	return errs
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x is optimal for mixed I/O and CGO workloads.
const DefaultWorkerMultiplier = 2

// Workers resolves a configured worker count; n <= 0 means 2x NumCPU.
func Workers(n int) int {
	if n > 0 {
		return n
	}
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// Options configures a parallel run.
type Options struct {
	// Workers bounds the number of files processed at once. 0 = 2x NumCPU.
	Workers int
	// MaxFileSize skips files larger than this many bytes. 0 = no limit.
	MaxFileSize int64
}

// SourceFunc analyzes one file whose content has already been read.
// Each call gets a parser owned by its worker.
type SourceFunc[T any] func(psr *parser.Parser, path string, content []byte) (T, error)

// MapFiles processes files from the filesystem in parallel.
// See MapSourceFiles.
func MapFiles[T any](ctx context.Context, files []string, opts Options, fn SourceFunc[T]) ([]T, *ProcessingErrors) {
	return MapSourceFiles(ctx, files, source.NewFilesystem(), opts, fn)
}

// MapSourceFiles processes files read from src in parallel with context
// cancellation. Results keep the order of files; files that fail are left
// out and reported in the returned ProcessingErrors, which is nil when
// every file succeeded. Every file is reported to the tracker carried by
// ctx (see analyzer.WithTracker), with its space count when T is an
// analyzer.SpaceCounter.
func MapSourceFiles[T any](ctx context.Context, files []string, src source.ContentSource, opts Options, fn SourceFunc[T]) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}

	tracker := analyzer.TrackerFromContext(ctx)
	if tracker != nil {
		tracker.Add(len(files))
	}

	errs := &ProcessingErrors{}
	results := make([]T, len(files))
	ok := make([]bool, len(files))

	p := pool.New().WithMaxGoroutines(Workers(opts.Workers)).WithContext(ctx)
	for i, path := range files {
		p.Go(func(ctx context.Context) error {
			fail := func(err error) {
				errs.Add(path, err)
				if tracker != nil {
					tracker.Fail(path)
				}
			}

			select {
			case <-ctx.Done():
				fail(ctx.Err())
				return ctx.Err()
			default:
			}

			content, err := src.Read(path)
			if err != nil {
				fail(fmt.Errorf("read: %w", err))
				return nil
			}
			if opts.MaxFileSize > 0 && int64(len(content)) > opts.MaxFileSize {
				fail(fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, len(content), opts.MaxFileSize))
				return nil
			}

			psr := parser.New()
			defer psr.Close()

			result, err := fn(psr, path, content)
			if err != nil {
				fail(err)
				return nil // Don't stop pool on individual file errors
			}
			results[i] = result
			ok[i] = true
			if tracker != nil {
				tracker.Done(path, spaceCount(result))
			}
			return nil
		})
	}
	_ = p.Wait() // Context errors are already captured in errs

	out := make([]T, 0, len(files))
	for i := range results {
		if ok[i] {
			out = append(out, results[i])
		}
	}

	if !errs.HasErrors() {
		return out, nil
	}
	return out, errs
}

func spaceCount(result any) int {
	if c, ok := result.(analyzer.SpaceCounter); ok {
		return c.SpaceCount()
	}
	return 0
}
