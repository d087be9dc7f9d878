// Package source provides the file content sources analyses read from.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNotFound is returned when a path does not exist in a git tree.
var ErrNotFound = errors.New("file not found in tree")

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// TreeSource reads files from a git tree. Paths are relative to the
// repository root and use forward slashes.
// It is safe for concurrent use by multiple goroutines.
type TreeSource struct {
	tree *object.Tree
	hash plumbing.Hash
	mu   sync.Mutex
}

// NewTree creates a source that reads from a git tree.
func NewTree(tree *object.Tree) *TreeSource {
	return &TreeSource{tree: tree, hash: tree.Hash}
}

// OpenRevision opens the repository containing repoPath and returns a source
// over the tree of the commit ref resolves to (a branch, tag or hash).
func OpenRevision(repoPath, ref string) (*TreeSource, error) {
	repo, err := git.PlainOpenWithOptions(repoPath, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", repoPath, err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", ref, err)
	}

	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", hash, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree of %s: %w", hash, err)
	}

	src := NewTree(tree)
	src.hash = *hash
	return src, nil
}

// Revision returns the commit hash the source was opened at, or the tree
// hash for sources built with NewTree.
func (t *TreeSource) Revision() string {
	return t.hash.String()
}

// Read implements ContentSource.
// It is safe for concurrent use.
func (t *TreeSource) Read(path string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := t.tree.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, err
	}

	r, err := f.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Files lists the regular files in the tree accepted by keep, sorted.
// A nil keep accepts everything.
func (t *TreeSource) Files(keep func(path string) bool) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var files []string
	err := t.tree.Files().ForEach(func(f *object.File) error {
		if !f.Mode.IsFile() {
			return nil
		}
		if keep == nil || keep(f.Name) {
			files = append(files, f.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
