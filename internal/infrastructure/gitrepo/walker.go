package gitrepo

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxSourceFileBytes guards the walker against generated bundles and vendored
// blobs that would drown the index.
const maxSourceFileBytes = 1 << 20

// Walker yields repository source files matching a suffix set. Hidden
// directories and common dependency trees are skipped.
type Walker struct {
	root string
}

func NewWalker(root string) *Walker {
	return &Walker{root: root}
}

var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"venv":         true,
	"dist":         true,
	"build":        true,
	"target":       true,
}

func (w *Walker) Walk(ctx context.Context, suffixes []string, fn func(path, content string) error) error {
	return filepath.WalkDir(w.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := entry.Name()
		if entry.IsDir() {
			if path != w.root && (strings.HasPrefix(name, ".") || skippedDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if !matchesSuffix(name, suffixes) {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if info.Size() > maxSourceFileBytes {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			rel = path
		}
		return fn(filepath.ToSlash(rel), string(content))
	})
}

func matchesSuffix(name string, suffixes []string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range suffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
