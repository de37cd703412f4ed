// Package definition loads workflow pattern and ticket template seeds from
// YAML files.
package definition

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aflo-dev/aflo/internal/domain/entity"
)

// File is the layout of one seed file. Either list may be empty.
type File struct {
	Patterns  []*entity.WorkflowPattern `yaml:"workflow_patterns"`
	Templates []*entity.TicketTemplate  `yaml:"ticket_templates"`
}

// Set is everything loaded from the seed directories. Patterns come before
// templates so templates can reference patterns from any file.
type Set struct {
	Patterns  []*entity.WorkflowPattern
	Templates []*entity.TicketTemplate
	Files     []string
}

// Loader scans directories for YAML seed files
type Loader struct{}

// NewLoader creates a new Loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadAll reads every *.yaml and *.yml file under directories, in lexical
// path order. Missing directories are skipped.
func (l *Loader) LoadAll(directories []string) (*Set, error) {
	set := &Set{}
	for _, dir := range directories {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		var paths []string
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext == ".yaml" || ext == ".yml" {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning directory %s: %w", dir, err)
		}
		sort.Strings(paths)

		for _, path := range paths {
			f, err := l.LoadFile(path)
			if err != nil {
				return nil, err
			}
			set.Patterns = append(set.Patterns, f.Patterns...)
			set.Templates = append(set.Templates, f.Templates...)
			set.Files = append(set.Files, path)
		}
	}
	return set, nil
}

// LoadFile parses a single seed file
func (l *Loader) LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	for i, p := range f.Patterns {
		if p == nil || p.Code == "" {
			return nil, fmt.Errorf("%s: workflow pattern %d has no code", path, i)
		}
	}
	for i, t := range f.Templates {
		if t == nil || t.ID == "" {
			return nil, fmt.Errorf("%s: ticket template %d has no id", path, i)
		}
	}
	return &f, nil
}
