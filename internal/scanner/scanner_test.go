package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"

	"github.com/panbanda/spaces/pkg/config"
	"github.com/panbanda/spaces/pkg/parser"
)

func createFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to create file %s: %v", name, err)
		}
	}
}

func relSet(t *testing.T, root string, files []string) map[string]bool {
	t.Helper()
	set := make(map[string]bool, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			t.Fatalf("Rel(%s): %v", f, err)
		}
		set[filepath.ToSlash(rel)] = true
	}
	return set
}

func TestNewScanner(t *testing.T) {
	s := NewScanner(nil)
	if s.config == nil {
		t.Error("scanner.config should not be nil when passing nil")
	}
	if s.languages != nil {
		t.Error("default config should not restrict languages")
	}

	cfg := config.DefaultConfig()
	cfg.Analysis.Languages = []string{"rust"}
	s = NewScanner(cfg)
	if !s.languages[parser.LangRust] || s.languages[parser.LangPython] {
		t.Errorf("languages = %v, want only rust", s.languages)
	}
}

func TestScanDir(t *testing.T) {
	tmpDir := t.TempDir()
	createFiles(t, tmpDir, map[string]string{
		"main.py":                 "x = 1\n",
		"lib/util.rs":             "fn f() {}\n",
		"lib/Thing.java":          "class Thing {}\n",
		"README.md":               "# readme\n",
		"vendor/dep.go":           "package dep\n",
		"web/node_modules/m/i.js": "x\n",
		"web/app.min.js":          "x\n",
		"web/app.js":              "x\n",
		"types/index.d.ts":        "x\n",
	})

	result, err := NewScanner(nil).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	want := []string{"lib/Thing.java", "lib/util.rs", "main.py", "web/app.js"}
	got := relSet(t, tmpDir, result)
	if len(got) != len(want) {
		t.Fatalf("ScanDir() found %v, want %v", got, want)
	}
	for _, w := range want {
		if !got[w] {
			t.Errorf("ScanDir() missing %s", w)
		}
	}

	for i := 1; i < len(result); i++ {
		if result[i-1] > result[i] {
			t.Errorf("ScanDir() result not sorted: %v", result)
		}
	}
}

func TestScanDirLanguageFilter(t *testing.T) {
	tmpDir := t.TempDir()
	createFiles(t, tmpDir, map[string]string{
		"a.py": "x = 1\n",
		"b.rs": "fn f() {}\n",
	})

	cfg := config.DefaultConfig()
	cfg.Analysis.Languages = []string{"python"}

	result, err := NewScanner(cfg).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 1 || filepath.Base(result[0]) != "a.py" {
		t.Errorf("ScanDir() = %v, want only a.py", result)
	}
}

func initGitRepo(t *testing.T, dir string) {
	t.Helper()
	if _, err := git.PlainInit(dir, false); err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
}

func TestScanDirWithGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	initGitRepo(t, tmpDir)
	createFiles(t, tmpDir, map[string]string{
		".gitignore":        "skipme/\n*.gen.py\n",
		"main.py":           "x = 1\n",
		"skipme/skip.py":    "x = 2\n",
		"src/app.py":        "x = 3\n",
		"src/schema.gen.py": "x = 4\n",
		"src/.gitignore":    "local.rs\n",
		"src/local.rs":      "fn f() {}\n",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = true

	// scanning a subdirectory still honours the repository rules
	result, err := NewScanner(cfg).ScanDir(filepath.Join(tmpDir, "src"))
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	got := relSet(t, filepath.Join(tmpDir, "src"), result)
	if len(got) != 1 || !got["app.py"] {
		t.Errorf("ScanDir(src) = %v, want only app.py", got)
	}

	result, err = NewScanner(cfg).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	got = relSet(t, tmpDir, result)
	if len(got) != 2 || !got["main.py"] || !got["src/app.py"] {
		t.Errorf("ScanDir() = %v, want main.py and src/app.py", got)
	}
}

func TestScanDirDisabledGitignore(t *testing.T) {
	tmpDir := t.TempDir()
	initGitRepo(t, tmpDir)
	createFiles(t, tmpDir, map[string]string{
		".gitignore":     "skipme/\n",
		"main.py":        "x = 1\n",
		"skipme/skip.py": "x = 2\n",
	})

	cfg := config.DefaultConfig()
	cfg.Exclude.Gitignore = false

	result, err := NewScanner(cfg).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("ScanDir() = %v, want 2 files", result)
	}
}

func TestScanDirEmptyDirectory(t *testing.T) {
	result, err := NewScanner(nil).ScanDir(t.TempDir())
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("ScanDir() on empty dir = %v", result)
	}
}

func TestScan(t *testing.T) {
	tmpDir := t.TempDir()
	createFiles(t, tmpDir, map[string]string{
		"a/x.py":   "x = 1\n",
		"a/y.rs":   "fn f() {}\n",
		"b.java":   "class B {}\n",
		"notes.md": "# notes\n",
	})

	s := NewScanner(nil)
	result, err := s.Scan(
		filepath.Join(tmpDir, "a"),
		filepath.Join(tmpDir, "b.java"),
		filepath.Join(tmpDir, "notes.md"),
		filepath.Join(tmpDir, "a", "x.py"),
	)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	got := relSet(t, tmpDir, result)
	if len(result) != 3 || !got["a/x.py"] || !got["a/y.rs"] || !got["b.java"] {
		t.Errorf("Scan() = %v", result)
	}

	if _, err := s.Scan(filepath.Join(tmpDir, "missing")); err == nil {
		t.Error("Scan() should fail for a missing path")
	}
}

func TestScanFile(t *testing.T) {
	tmpDir := t.TempDir()
	createFiles(t, tmpDir, map[string]string{
		"main.py":    "x = 1\n",
		"README.md":  "# readme\n",
		"app.min.js": "x\n",
	})
	s := NewScanner(nil)

	tests := []struct {
		name string
		want bool
	}{
		{"main.py", true},
		{"README.md", false},
		{"app.min.js", false},
	}
	for _, tt := range tests {
		ok, err := s.ScanFile(filepath.Join(tmpDir, tt.name))
		if err != nil {
			t.Fatalf("ScanFile(%s) error: %v", tt.name, err)
		}
		if ok != tt.want {
			t.Errorf("ScanFile(%s) = %v, want %v", tt.name, ok, tt.want)
		}
	}

	if ok, _ := s.ScanFile(tmpDir); ok {
		t.Error("ScanFile() should reject directories")
	}
	if _, err := s.ScanFile(filepath.Join(tmpDir, "missing.py")); err == nil {
		t.Error("ScanFile() should fail for missing files")
	}
}

func TestAccept(t *testing.T) {
	s := NewScanner(nil)
	tests := []struct {
		path string
		want bool
	}{
		{"src/a.py", true},
		{"src/a.jsm", true},
		{"vendor/a.py", false},
		{"docs/a.txt", false},
	}
	for _, tt := range tests {
		if got := s.Accept(tt.path); got != tt.want {
			t.Errorf("Accept(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestGroupByLanguage(t *testing.T) {
	groups := GroupByLanguage([]string{"a.py", "b.py", "c.rs", "d.txt"})
	if len(groups) != 2 {
		t.Fatalf("GroupByLanguage() = %v, want 2 groups", groups)
	}
	if len(groups[parser.LangPython]) != 2 || len(groups[parser.LangRust]) != 1 {
		t.Errorf("GroupByLanguage() = %v", groups)
	}
}

func TestIsWithinRoot(t *testing.T) {
	root := t.TempDir()
	tests := []struct {
		path string
		want bool
	}{
		{root, true},
		{filepath.Join(root, "a", "b"), true},
		{root + "2", false},
		{filepath.Dir(root), false},
		{filepath.Join(root, "..", "x"), false},
	}
	for _, tt := range tests {
		if got := isWithinRoot(tt.path, root); got != tt.want {
			t.Errorf("isWithinRoot(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFindGitRoot(t *testing.T) {
	tmpDir := t.TempDir()
	initGitRepo(t, tmpDir)
	sub := filepath.Join(tmpDir, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	want, _ := filepath.Abs(tmpDir)
	if got := findGitRoot(sub); got != want {
		t.Errorf("findGitRoot() = %q, want %q", got, want)
	}
}

func TestScanDirWithSymlinks(t *testing.T) {
	tmpDir := t.TempDir()
	realFile := filepath.Join(tmpDir, "real.py")
	if err := os.WriteFile(realFile, []byte("x = 1\n"), 0o644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if err := os.Symlink(realFile, filepath.Join(tmpDir, "link.py")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}
	if err := os.Symlink("/nonexistent/path/file.py", filepath.Join(tmpDir, "dangling.py")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}

	outsideDir := t.TempDir()
	outside := filepath.Join(outsideDir, "outside.py")
	if err := os.WriteFile(outside, []byte("x = 2\n"), 0o644); err != nil {
		t.Fatalf("Failed to create outside file: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(tmpDir, "escape.py")); err != nil {
		t.Skip("Symlinks not supported on this system")
	}

	result, err := NewScanner(nil).ScanDir(tmpDir)
	if err != nil {
		t.Fatalf("ScanDir() error: %v", err)
	}

	got := relSet(t, tmpDir, result)
	if len(got) != 2 || !got["real.py"] || !got["link.py"] {
		t.Errorf("ScanDir() = %v, want real.py and link.py only", got)
	}
}
