package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/ppiankov/sqlspectre/internal/source"
)

var skipDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	".idea":        true,
	".vs":          true,
	".gradle":      true,
	"node_modules": true,
	"target":       true,
	"build":        true,
	"bin":          true,
	"obj":          true,
	"out":          true,
	"packages":     true,
}

// IsSkippedDir reports whether a directory with this name is never scanned.
func IsSkippedDir(name string) bool {
	return skipDirs[name]
}

// file is a walked path with its language.
type file struct {
	abs  string
	rel  string
	lang source.Language
	size int64
}

// walk collects the files under root that have a known language. It returns
// the files and the number skipped for their extension or an exclude glob.
func walk(ctx context.Context, root string, opts Options) ([]file, int, error) {
	extra := make(map[string]bool, len(opts.SkipDirs))
	for _, d := range opts.SkipDirs {
		extra[d] = true
	}

	var files []file
	skipped := 0
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && (skipDirs[d.Name()] || extra[d.Name()]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, _ := filepath.Rel(root, p)
		rel = filepath.ToSlash(rel)
		lang := source.LanguageForPath(p, opts.Extensions)
		if lang == source.LanguageUnknown || excluded(rel, opts.ExcludeFiles) {
			skipped++
			return nil
		}

		var size int64
		if info, err := d.Info(); err == nil {
			size = info.Size()
		}
		files = append(files, file{abs: p, rel: rel, lang: lang, size: size})
		return nil
	})
	if err != nil {
		return files, skipped, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, skipped, nil
}

// excluded reports whether rel matches any glob, either as a whole path or
// by base name.
func excluded(rel string, globs []string) bool {
	base := path.Base(rel)
	for _, g := range globs {
		if ok, _ := path.Match(g, rel); ok {
			return true
		}
		if ok, _ := path.Match(g, base); ok {
			return true
		}
	}
	return false
}
