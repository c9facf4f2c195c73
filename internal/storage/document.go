package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mesh-intelligence/roadmap/internal/table"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// sourceExts are the file types scanned for embedded task tables.
var sourceExts = map[string]bool{
	".go":  true,
	".ts":  true,
	".tsx": true,
	".js":  true,
	".mjs": true,
	".cjs": true,
}

// skipDirs are never descended into during replica discovery.
var skipDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
}

// document is one file held in memory for the length of a batch.
type document struct {
	path    string
	name    string
	lines   []string
	orig    string
	schemas []*table.Schema
	dirty   bool
}

func readDocument(path, name string, schemas []*table.Schema) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.IOError(types.KindReadFailed, path, err)
	}
	text := string(data)
	return &document{
		path:    path,
		name:    name,
		lines:   table.SplitLines(text),
		orig:    text,
		schemas: schemas,
	}, nil
}

func (d *document) text() string {
	return strings.Join(d.lines, "\n")
}

func (d *document) entries() []table.Entry {
	return table.ParseLines(d.lines, d.schemas...)
}

// replicaRef names a candidate replica file before it is loaded.
type replicaRef struct {
	path    string
	name    string
	schemas []*table.Schema
}

// discover lists the markdown documents under docsDir and the source
// files under srcDirs that carry a task marker. The roadmap itself is
// excluded. Results are sorted by name.
func discover(roadmapPath, docsDir string, srcDirs []string) ([]replicaRef, error) {
	roadmapAbs, _ := filepath.Abs(roadmapPath)
	var refs []replicaRef

	walk := func(root string, visit func(path string, d fs.DirEntry) error) error {
		if root == "" {
			return nil
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && (strings.HasPrefix(d.Name(), ".") || skipDirs[d.Name()]) {
					return filepath.SkipDir
				}
				return nil
			}
			if abs, _ := filepath.Abs(path); abs == roadmapAbs {
				return nil
			}
			return visit(path, d)
		})
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	err := walk(docsDir, func(path string, d fs.DirEntry) error {
		if strings.EqualFold(filepath.Ext(path), ".md") {
			refs = append(refs, replicaRef{path: path, name: relName(docsDir, path), schemas: table.DocSchemas})
		}
		return nil
	})
	if err != nil {
		return nil, types.IOError(types.KindReadFailed, docsDir, err)
	}

	for _, dir := range srcDirs {
		err := walk(dir, func(path string, d fs.DirEntry) error {
			if !sourceExts[filepath.Ext(path)] {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if table.HasMarker(string(data), table.SourceSchemas...) {
				refs = append(refs, replicaRef{
					path:    path,
					name:    relName(filepath.Dir(filepath.Clean(dir)), path),
					schemas: table.SourceSchemas,
				})
			}
			return nil
		})
		if err != nil {
			return nil, types.IOError(types.KindReadFailed, dir, err)
		}
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].name < refs[j].name })
	return refs, nil
}

func relName(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

func cloneLines(lines []string) []string {
	return append([]string(nil), lines...)
}

func insertLines(lines []string, at int, add ...string) []string {
	out := make([]string, 0, len(lines)+len(add))
	out = append(out, lines[:at]...)
	out = append(out, add...)
	return append(out, lines[at:]...)
}

func removeLine(lines []string, at int) []string {
	out := make([]string, 0, len(lines)-1)
	out = append(out, lines[:at]...)
	return append(out, lines[at+1:]...)
}
