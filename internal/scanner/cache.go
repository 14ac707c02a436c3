package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ppiankov/sqlspectre/internal/pipeline"
	"github.com/ppiankov/sqlspectre/internal/source"
)

// resultCache reuses pipeline results for files with identical content,
// common in generated or vendored code. A nil cache is disabled.
type resultCache struct {
	lru *lru.Cache[string, pipeline.FileResult]
}

func newResultCache(size int) *resultCache {
	if size < 0 {
		return nil
	}
	if size == 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, pipeline.FileResult](size)
	if err != nil {
		return nil
	}
	return &resultCache{lru: c}
}

func cacheKey(lang source.Language, text string) string {
	sum := sha256.Sum256([]byte(text))
	return string(lang) + ":" + hex.EncodeToString(sum[:])
}

// get returns the cached result rebound to path.
func (c *resultCache) get(key, path string) (pipeline.FileResult, bool) {
	if c == nil {
		return pipeline.FileResult{}, false
	}
	res, ok := c.lru.Get(key)
	if !ok {
		return pipeline.FileResult{}, false
	}
	res.Path = path
	res.Unparsed = slices.Clone(res.Unparsed)
	for i := range res.Unparsed {
		res.Unparsed[i].Path = path
	}
	return res, true
}

func (c *resultCache) add(key string, res pipeline.FileResult) {
	if c == nil {
		return
	}
	c.lru.Add(key, res)
}
