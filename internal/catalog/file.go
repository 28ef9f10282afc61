package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/certmap/internal/schema"
)

// FileSource reads a seed catalog from a YAML or JSON file. The format is
// chosen by extension; anything other than .json is parsed as YAML.
type FileSource struct {
	Path string
}

// NewFileSource creates a file-backed source
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string {
	return "file:" + s.Path
}

// Fetch reads and decodes the file
func (s *FileSource) Fetch(ctx context.Context) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return DecodeFile(s.Path, data)
}

// DecodeFile decodes seed file contents into candidates
func DecodeFile(path string, data []byte) ([]any, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return schema.DecodeCollection(data)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	switch v := doc.(type) {
	case nil:
		return []any{}, nil
	case []any:
		return v, nil
	case map[string]any:
		// allow a top-level "certifications:" key
		if items, ok := v["certifications"].([]any); ok {
			return items, nil
		}
	}
	return nil, fmt.Errorf("expected a list of certifications in %s", path)
}
