package scanner

import (
	"github.com/ppiankov/sqlspectre/internal/pipeline"
	"github.com/ppiankov/sqlspectre/internal/source"
)

// PatternType identifies how an ORM table mapping was detected.
type PatternType string

const (
	PatternJPA       PatternType = "jpa"
	PatternHibernate PatternType = "hibernate"
	PatternEF        PatternType = "entity-framework"
	PatternLinqToSQL PatternType = "linq-to-sql"
)

// DefaultMaxFileBytes caps the size of a file handed to the pipeline.
const DefaultMaxFileBytes = 4 << 20

// DefaultCacheSize is the number of file results kept by content hash.
const DefaultCacheSize = 1024

// Options control a scan.
type Options struct {
	// Workers is the number of files processed concurrently.
	// 0 means runtime.NumCPU(), 1 is sequential.
	Workers int
	// SkipDirs are directory names skipped in addition to the defaults.
	SkipDirs []string
	// Extensions maps lower-case file extensions to languages.
	// Nil means source.DefaultExtensions.
	Extensions map[string]source.Language
	// ExcludeFiles are glob patterns matched against slash-separated
	// relative paths and base names.
	ExcludeFiles []string
	// MaxFileBytes skips larger files. 0 means DefaultMaxFileBytes.
	MaxFileBytes int64
	// CacheSize bounds the content cache. 0 means DefaultCacheSize,
	// negative disables caching.
	CacheSize int
	Limits    pipeline.Limits
}

// Unreadable is a file that could not be read.
type Unreadable struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Stats describe what a scan visited.
type Stats struct {
	RepoPath      string       `json:"repoPath"`
	FilesScanned  int          `json:"filesScanned"`
	FilesSkipped  int          `json:"filesSkipped"`
	FilesTooLarge int          `json:"filesTooLarge,omitempty"`
	CacheHits     int          `json:"cacheHits,omitempty"`
	Unreadable    []Unreadable `json:"unreadable,omitempty"`
}

// Sink receives completed file results. *aggregate.Aggregator satisfies it.
type Sink interface {
	Merge(pipeline.FileResult)
}
