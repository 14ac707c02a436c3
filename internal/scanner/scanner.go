// Package scanner walks a repository and feeds every source file through the
// SQL pipeline.
package scanner

import (
	"cmp"
	"context"
	"log/slog"
	"os"
	"slices"
	"sync"

	"github.com/ppiankov/sqlspectre/internal/pipeline"
	"github.com/ppiankov/sqlspectre/internal/source"
)

// Scan walks root, processes every file with a known language and merges
// each file result into sink. Unreadable files are recorded in Stats and
// never abort the scan. When ctx is cancelled no further files are
// scheduled, sink keeps what was merged, and ctx.Err() is returned.
func Scan(ctx context.Context, root string, opts Options, sink Sink) (Stats, error) {
	stats := Stats{RepoPath: root}

	files, skipped, err := walk(ctx, root, opts)
	stats.FilesSkipped = skipped
	if err != nil {
		return stats, err
	}
	slog.Debug("walk complete", "path", root, "files", len(files), "skipped", skipped)

	maxBytes := opts.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	cache := newResultCache(opts.CacheSize)

	var mu sync.Mutex
	err = forEach(ctx, files, opts.Workers, func(f file) {
		if f.size > maxBytes {
			slog.Debug("file too large", "path", f.rel, "bytes", f.size)
			mu.Lock()
			stats.FilesTooLarge++
			mu.Unlock()
			return
		}

		res, hit, err := scanFile(f, opts.Limits, cache)
		if err != nil {
			slog.Warn("unreadable file", "path", f.rel, "error", err)
			mu.Lock()
			stats.Unreadable = append(stats.Unreadable, Unreadable{Path: f.rel, Error: err.Error()})
			mu.Unlock()
			return
		}
		sink.Merge(res)

		mu.Lock()
		stats.FilesScanned++
		if hit {
			stats.CacheHits++
		}
		mu.Unlock()
	})

	slices.SortFunc(stats.Unreadable, func(a, b Unreadable) int { return cmp.Compare(a.Path, b.Path) })
	return stats, err
}

// errNotText marks binary or undecodable content.
type errNotText struct{}

func (errNotText) Error() string { return "not a text file" }

// ReadText reads path and decodes it to UTF-8. Binary files are an error.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text, ok := decode(data)
	if !ok {
		return "", errNotText{}
	}
	return text, nil
}

func scanFile(f file, limits pipeline.Limits, cache *resultCache) (pipeline.FileResult, bool, error) {
	text, err := ReadText(f.abs)
	if err != nil {
		return pipeline.FileResult{}, false, err
	}

	key := cacheKey(f.lang, text)
	if res, ok := cache.get(key, f.rel); ok {
		return res, true, nil
	}
	res := ProcessUnit(source.Unit{Path: f.rel, Language: f.lang, Text: text}, limits)
	cache.add(key, res)
	return res, false, nil
}

// ProcessUnit runs the SQL pipeline and ORM mapping detection over one unit.
func ProcessUnit(u source.Unit, limits pipeline.Limits) pipeline.FileResult {
	res := pipeline.Process(u, limits)
	if u.Language != source.LanguageSQL {
		res.Mappings = FindMappings(u.Text)
	}
	return res
}
