package formats

import (
	"sync"

	"github.com/kalimaproject/kalima/core/model"
)

// FallbackCache parses a fallback corpus (legacy or tabular) at most
// once per process and serves its verses by coordinate. The data is
// static, so a cached parse never invalidates; construct a new cache to
// re-read.
type FallbackCache struct {
	normalizer Normalizer
	path       string

	once  sync.Once
	err   error
	byRef map[string]*model.Verse
}

// NewFallbackCache wraps a normalizer and input path without parsing.
func NewFallbackCache(n Normalizer, path string) *FallbackCache {
	return &FallbackCache{normalizer: n, path: path}
}

func (c *FallbackCache) load() {
	c.byRef = map[string]*model.Verse{}
	rc, err := OpenInput(c.path)
	if err != nil {
		c.err = err
		return
	}
	defer rc.Close()

	verses, err := c.normalizer.Parse(rc)
	if err != nil {
		c.err = err
		return
	}
	for i := range verses {
		v := &verses[i]
		c.byRef[v.Ref()] = v
	}
}

// Verse returns the cached verse for a coordinate, parsing the corpus
// on first access. A missing coordinate returns nil with no error.
func (c *FallbackCache) Verse(surah, ayah int64) (*model.Verse, error) {
	c.once.Do(c.load)
	if c.err != nil {
		return nil, c.err
	}
	return c.byRef[model.VerseRef(surah, ayah)], nil
}

// Len reports the number of cached verses, forcing the parse.
func (c *FallbackCache) Len() (int, error) {
	c.once.Do(c.load)
	if c.err != nil {
		return 0, c.err
	}
	return len(c.byRef), nil
}
