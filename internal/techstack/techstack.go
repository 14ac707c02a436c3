// Package techstack fingerprints the build tools, frameworks, application
// servers and databases a repository uses. Results are report metadata and
// never feed the SQL pipeline.
package techstack

import (
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ppiankov/sqlspectre/internal/scanner"
)

// Category groups technologies in reports.
type Category string

const (
	CategoryBuild     Category = "build"
	CategoryRuntime   Category = "runtime"
	CategoryFramework Category = "framework"
	CategoryServer    Category = "app-server"
	CategoryDatabase  Category = "database"
)

var categoryOrder = map[Category]int{
	CategoryBuild:     0,
	CategoryRuntime:   1,
	CategoryFramework: 2,
	CategoryServer:    3,
	CategoryDatabase:  4,
}

// Technology is one detected component and the first file that showed it.
type Technology struct {
	Name         string   `json:"name"`
	Category     Category `json:"category"`
	Version      string   `json:"version,omitempty"`
	EvidencePath string   `json:"evidencePath"`
}

// DefaultImportSample is the number of Java files checked for imports.
const DefaultImportSample = 100

// maxDescriptorBytes bounds the files read by detectors.
const maxDescriptorBytes = 2 << 20

// Options control detection.
type Options struct {
	SkipDirs []string
	// ImportSample caps the Java files read for framework imports.
	// 0 means DefaultImportSample, negative disables import sampling.
	ImportSample int
}

// detector inspects one file. rel is slash-separated.
type detector func(rel string, data []byte, add addFunc)

type addFunc func(t Technology)

// detectorFor picks the detector for a file by name, or nil.
func detectorFor(rel string) detector {
	base := strings.ToLower(filepath.Base(rel))
	ext := filepath.Ext(base)
	switch {
	case base == "pom.xml":
		return detectPOM
	case ext == ".gradle" || strings.HasSuffix(base, ".gradle.kts"):
		return detectGradle
	case ext == ".csproj" || ext == ".vbproj":
		return detectProject
	case base == "packages.config":
		return detectPackagesConfig
	case base == "web.config" || base == "app.config" || strings.HasSuffix(base, ".exe.config"):
		return detectDotnetConfig
	case strings.HasPrefix(base, "appsettings") && ext == ".json":
		return detectAppSettings
	case base == "hibernate.cfg.xml":
		return detectHibernateConfig
	case isComposeFile(base):
		return detectCompose
	case isSpringConfig(base, ".properties"):
		return detectProperties
	case isSpringConfig(base, ".yml") || isSpringConfig(base, ".yaml"):
		return detectSpringYAML
	}
	if srv, ok := serverDescriptor(base); ok {
		return func(rel string, _ []byte, add addFunc) {
			add(Technology{Name: srv, Category: CategoryServer, EvidencePath: rel})
		}
	}
	return nil
}

func isSpringConfig(base, ext string) bool {
	if !strings.HasSuffix(base, ext) {
		return false
	}
	name := strings.TrimSuffix(base, ext)
	return name == "application" || name == "bootstrap" || strings.HasPrefix(name, "application-")
}

// Detect walks root and returns the technologies found, ordered by category
// then name. Unparsable descriptors are skipped.
func Detect(ctx context.Context, root string, opts Options) ([]Technology, error) {
	sample := cmp.Or(opts.ImportSample, DefaultImportSample)
	extra := make(map[string]bool, len(opts.SkipDirs))
	for _, d := range opts.SkipDirs {
		extra[d] = true
	}

	found := newCollector()
	javaFiles := 0
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && (scanner.IsSkippedDir(d.Name()) || extra[d.Name()]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		rel = filepath.ToSlash(rel)

		det := detectorFor(rel)
		if det == nil && strings.EqualFold(filepath.Ext(rel), ".java") && javaFiles < sample {
			javaFiles++
			det = detectJavaImports
		}
		if det == nil {
			return nil
		}

		data, err := readBounded(p)
		if err != nil {
			slog.Debug("skip descriptor", "path", rel, "error", err)
			return nil
		}
		det(rel, data, found.add)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("detect %s: %w", root, err)
	}
	return found.list(), nil
}

func readBounded(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxDescriptorBytes {
		return nil, fmt.Errorf("%d bytes exceeds %d", info.Size(), maxDescriptorBytes)
	}
	return os.ReadFile(path)
}

// collector keeps the first evidence for each technology and the first
// version seen.
type collector struct {
	byName map[string]*Technology
}

func newCollector() *collector {
	return &collector{byName: map[string]*Technology{}}
}

func (c *collector) add(t Technology) {
	if t.Name == "" {
		return
	}
	if cur, ok := c.byName[t.Name]; ok {
		if cur.Version == "" {
			cur.Version = t.Version
		}
		return
	}
	c.byName[t.Name] = &t
}

func (c *collector) list() []Technology {
	out := make([]Technology, 0, len(c.byName))
	for _, t := range c.byName {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b Technology) int {
		return cmp.Or(
			cmp.Compare(categoryOrder[a.Category], categoryOrder[b.Category]),
			cmp.Compare(a.Name, b.Name),
		)
	})
	return out
}
