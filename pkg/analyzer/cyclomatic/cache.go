package cyclomatic

import (
	"encoding/json"
	"errors"

	metric "github.com/panbanda/spaces/pkg/metrics/cyclomatic"
	"github.com/panbanda/spaces/pkg/parser"
	"github.com/panbanda/spaces/pkg/spaces"
)

// cachedSpace keeps the full merge state of a space, which the reported
// record (sum, average, min, max) drops.
type cachedSpace struct {
	Name       string         `json:"name,omitempty"`
	Kind       spaces.Kind    `json:"kind"`
	StartLine  int            `json:"start_line"`
	EndLine    int            `json:"end_line"`
	Complexity float64        `json:"complexity"`
	State      metric.State   `json:"state"`
	Spaces     []*cachedSpace `json:"spaces,omitempty"`
}

type cachedFile struct {
	Path     string       `json:"path"`
	Language string       `json:"language"`
	Unit     *cachedSpace `json:"unit"`
}

func cacheKey(path string, lang parser.Language) string {
	return string(lang) + ":" + path
}

func toCached(s *spaces.FuncSpace) *cachedSpace {
	c := &cachedSpace{
		Name:       s.Name,
		Kind:       s.Kind,
		StartLine:  s.StartLine,
		EndLine:    s.EndLine,
		Complexity: s.Complexity,
		State:      s.Cyclomatic.State(),
	}
	for _, child := range s.Spaces {
		c.Spaces = append(c.Spaces, toCached(child))
	}
	return c
}

func fromCached(c *cachedSpace) (*spaces.FuncSpace, error) {
	sum, err := c.State.Summary()
	if err != nil {
		return nil, err
	}
	s := &spaces.FuncSpace{
		Name:       c.Name,
		Kind:       c.Kind,
		StartLine:  c.StartLine,
		EndLine:    c.EndLine,
		Complexity: c.Complexity,
		Cyclomatic: sum,
	}
	for _, child := range c.Spaces {
		cs, err := fromCached(child)
		if err != nil {
			return nil, err
		}
		s.Spaces = append(s.Spaces, cs)
	}
	return s, nil
}

// lookup returns a cached result for the file content hash.
func (a *Analyzer) lookup(key, hash string) (FileResult, bool) {
	data, ok := a.cache.Lookup(key, hash)
	if !ok {
		return FileResult{}, false
	}

	var entry cachedFile
	err := json.Unmarshal(data, &entry)
	if err == nil && entry.Unit == nil {
		err = errors.New("missing unit space")
	}
	var unit *spaces.FuncSpace
	if err == nil {
		unit, err = fromCached(entry.Unit)
	}
	if err != nil {
		a.logger.Debug("discarding cache entry", "key", key, "err", err)
		if err := a.cache.Invalidate(key); err != nil {
			a.logger.Warn("cache invalidate failed", "key", key, "err", err)
		}
		return FileResult{}, false
	}

	fr := newFileResult(entry.Path, parser.Language(entry.Language), unit)
	fr.Cached = true
	return fr, true
}

func (a *Analyzer) store(key, hash string, fr FileResult) {
	if a.cache == nil {
		return
	}
	data, err := json.Marshal(cachedFile{
		Path:     fr.Path,
		Language: fr.Language,
		Unit:     toCached(fr.Spaces),
	})
	if err != nil {
		return
	}
	if err := a.cache.Store(key, hash, data); err != nil {
		a.logger.Warn("cache write failed", "key", key, "err", err)
	}
}
