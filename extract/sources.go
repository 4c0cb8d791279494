package extract

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindSources expands paths into the source files Detect understands.
// Directories are walked recursively, skipping any directory named in
// ignoreDirs, Go test files and generated minified bundles. Explicit file
// arguments are kept even when their extension is unknown, so the caller can
// report them.
func FindSources(paths []string, ignoreDirs []string) ([]string, error) {
	skip := make(map[string]bool, len(ignoreDirs))
	for _, d := range ignoreDirs {
		skip[d] = true
	}

	var files []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip unreadable entries
			}
			if d.IsDir() {
				if path != root && skip[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if !Detectable(path) || strings.HasSuffix(path, "_test.go") || strings.HasSuffix(path, ".min.js") {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}
