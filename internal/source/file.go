package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/spigell/job-ranker/internal/jobs"
)

// File reads jobs from a JSON or YAML document. The document is either a list of jobs
// or an object with an "items" list.
type File struct {
	path string
}

type itemsDocument struct {
	Items []*jobs.Job `json:"items" yaml:"items"`
}

func NewFile(path string) *File {
	return &File{path: strings.TrimSpace(path)}
}

func (f *File) Fetch(_ context.Context) (*jobs.Jobs, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading jobs file: %w", err)
	}

	var items []*jobs.Job
	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".yaml", ".yml":
		items, err = decodeYAML(data)
	default:
		items, err = decodeJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding jobs file %q: %w", f.path, err)
	}

	return &jobs.Jobs{Items: compact(items)}, nil
}

func decodeJSON(data []byte) ([]*jobs.Job, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var items []*jobs.Job
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var doc itemsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Items, nil
}

func decodeYAML(data []byte) ([]*jobs.Job, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, nil
	}

	node := root.Content[0]
	if node.Kind == yaml.SequenceNode {
		var items []*jobs.Job
		if err := node.Decode(&items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var doc itemsDocument
	if err := node.Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Items, nil
}

func compact(items []*jobs.Job) []*jobs.Job {
	out := items[:0]
	for _, item := range items {
		if item != nil {
			out = append(out, item)
		}
	}
	return out
}
