// Package guidance loads the workflow notes shown to whoever claims a
// task: a workflow per status and a reading list per feature area.
//
// The file is YAML, or TOML when its name ends in .toml:
//
//	baseline:
//	  - docs/architecture/Overview.md
//	workflows:
//	  open:
//	    title: Implement
//	    flowchart_file: workflows/implement.md
//	    meaning: Not started yet
//	feature_routing:
//	  Travel:
//	    path: docs/features/travel
//	    docs: [Travel.md, Routes.md]
package guidance

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/roadmap/internal/table"
	"github.com/mesh-intelligence/roadmap/pkg/types"
)

// Workflow describes how to work on a task in one status.
type Workflow struct {
	Title         string `yaml:"title" toml:"title"`
	FlowchartFile string `yaml:"flowchart_file" toml:"flowchart_file"`
	Accessible    string `yaml:"accessible" toml:"accessible"`
	Meaning       string `yaml:"meaning" toml:"meaning"`
}

// Route points a feature area at its documents.
type Route struct {
	Path string   `yaml:"path" toml:"path"`
	Docs []string `yaml:"docs" toml:"docs"`
}

// Config is a parsed guidance file.
type Config struct {
	Baseline       []string            `yaml:"baseline" toml:"baseline"`
	Workflows      map[string]Workflow `yaml:"workflows" toml:"workflows"`
	FeatureRouting map[string]Route    `yaml:"feature_routing" toml:"feature_routing"`

	dir      string
	byStatus map[types.Status]Workflow
}

// Guidance is what a claimer is shown for one record.
type Guidance struct {
	Workflow    *WorkflowGuidance `json:"workflow,omitempty"`
	ReadingList ReadingList       `json:"readingList"`
}

// WorkflowGuidance is a workflow with its flowchart loaded.
type WorkflowGuidance struct {
	Title      string `json:"title"`
	Content    string `json:"content,omitempty"`
	Accessible string `json:"accessible,omitempty"`
	Meaning    string `json:"meaning,omitempty"`
}

// ReadingList names the documents to read before starting.
type ReadingList struct {
	Baseline    []string `json:"baseline,omitempty"`
	FeatureDocs []string `json:"featureDocs,omitempty"`
	SpecDoc     string   `json:"specDoc,omitempty"`
}

// Load reads the guidance file at path. An empty path yields an empty
// config. Workflow keys may be status names, aliases or glyphs; an
// unknown key is an InvalidStatus error.
func Load(path string) (*Config, error) {
	c := &Config{}
	if path == "" {
		return c, c.index(table.DefaultStatuses())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.IOError(types.KindReadFailed, path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, c)
	} else {
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return nil, &types.Error{Kind: types.KindReadFailed, Message: "invalid guidance file", Path: path, Err: err}
	}
	c.dir = filepath.Dir(path)
	if err := c.index(table.DefaultStatuses()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) index(statuses *table.StatusSet) error {
	c.byStatus = make(map[types.Status]Workflow, len(c.Workflows))
	for key, w := range c.Workflows {
		st, err := statuses.Resolve(key)
		if err != nil {
			return types.NewError(types.KindInvalidStatus, "", "unknown workflow status %q", key)
		}
		c.byStatus[st] = w
	}
	return nil
}

// BereichKey returns the last path segment of a bereich, the key used
// for feature routing: "Features/Travel" routes as "Travel".
func BereichKey(bereich string) string {
	bereich = strings.TrimSpace(bereich)
	if i := strings.LastIndexByte(bereich, '/'); i >= 0 {
		return bereich[i+1:]
	}
	return bereich
}

// For returns the guidance for rec. A flowchart file that cannot be read
// leaves the workflow content empty.
func (c *Config) For(rec types.Record) Guidance {
	var g Guidance
	if w, ok := c.byStatus[rec.Status]; ok {
		g.Workflow = &WorkflowGuidance{
			Title:      w.Title,
			Content:    c.readFlowchart(w.FlowchartFile),
			Accessible: w.Accessible,
			Meaning:    w.Meaning,
		}
	}
	g.ReadingList.Baseline = append([]string(nil), c.Baseline...)
	if route, ok := c.FeatureRouting[BereichKey(rec.Bereich)]; ok {
		for _, d := range route.Docs {
			g.ReadingList.FeatureDocs = append(g.ReadingList.FeatureDocs, filepath.ToSlash(filepath.Join(route.Path, d)))
		}
	}
	if rec.Spec != "" && rec.Spec != table.None {
		g.ReadingList.SpecDoc = rec.Spec
	}
	return g
}

func (c *Config) readFlowchart(name string) string {
	if name == "" {
		return ""
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(c.dir, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}
