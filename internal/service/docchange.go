package service

import (
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/roadmap/internal/mutation"
	"github.com/mesh-intelligence/roadmap/internal/propagation"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// DocChangeResult lists the done tasks a document change reopened.
type DocChangeResult struct {
	Path    string               `json:"path"`
	Flagged []types.ID           `json:"flagged,omitempty"`
	Effects []propagation.Effect `json:"effects,omitempty"`
	Failed  []types.Failure      `json:"failed,omitempty"`
	DryRun  bool                 `json:"dryRun,omitempty"`
}

// CheckDocChange flags every done task whose spec column references the
// changed document as partial, and cascades the change. With sections,
// only references of the form "File.md#Section" to one of them count.
func (s *Service) CheckDocChange(path string, sections []string, dryRun bool) (*DocChangeResult, error) {
	res := &DocChangeResult{Path: path, DryRun: dryRun}
	err := s.inBatch("doc-change", func() error {
		snap, err := s.store.Load()
		if err != nil {
			return err
		}
		for _, task := range snap.Tasks {
			if task.Status != types.StatusDone || !referencesDoc(task.Spec, path, sections) {
				continue
			}
			cur, err := s.store.Load()
			if err != nil {
				return err
			}
			rec, ok := cur.Find(task.ID)
			if !ok || rec.Status != types.StatusDone {
				continue
			}
			m, err := mutation.For(rec).WithStatus(types.StatusPartial).Build()
			if err == nil {
				var er *EditResult
				er, err = s.apply(cur, rec, m, EditOptions{DryRun: dryRun}, false)
				if err == nil {
					res.Effects = append(res.Effects, er.Effects...)
					res.Failed = append(res.Failed, er.Failed...)
				}
			}
			if err != nil {
				res.Failed = append(res.Failed, types.Failure{ID: task.ID, Err: err})
				continue
			}
			res.Flagged = append(res.Flagged, task.ID)
		}
		if len(res.Flagged) > 0 {
			s.logger.Info("document changed", "path", path, "flagged", len(res.Flagged))
		}
		return nil
	})
	return res, err
}

// referencesDoc reports whether spec points at the document at path. The
// file name must match a whole path segment: OldTravel.md does not
// reference Travel.md.
func referencesDoc(spec, path string, sections []string) bool {
	spec = strings.ToLower(strings.TrimSpace(spec))
	if spec == "" || spec == "-" {
		return false
	}
	name := strings.ToLower(filepath.Base(path))
	if len(sections) == 0 {
		return containsRef(spec, name, "#")
	}
	for _, sec := range sections {
		if containsRef(spec, name+"#"+strings.ToLower(strings.TrimSpace(sec)), "") {
			return true
		}
	}
	return false
}

// refSeparators end a reference inside a spec cell.
const refSeparators = " ,;()[]"

// containsRef reports whether ref occurs in spec at the start of a path
// segment and is followed by the end, a separator or one of extra.
func containsRef(spec, ref, extra string) bool {
	for from := 0; ; {
		i := strings.Index(spec[from:], ref)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(ref)
		before := start == 0 || strings.ContainsRune("/"+refSeparators, rune(spec[start-1]))
		after := end == len(spec) || strings.ContainsRune(refSeparators+extra, rune(spec[end]))
		if before && after {
			return true
		}
		from = start + 1
	}
}
