package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"aligncore/pkg/domain"
)

// LoadRequirements reads the relation requirements table. Files ending in
// .yaml or .yml are parsed as YAML, anything else as JSON.
func LoadRequirements(path string) (domain.Requirements, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return nil, fmt.Errorf("requirements: read %s: %w", path, err)
	}
	return ParseRequirements(data, filepath.Ext(path))
}

// ParseRequirements decodes a requirements table in the format named by ext.
func ParseRequirements(data []byte, ext string) (domain.Requirements, error) {
	req := domain.Requirements{}
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("requirements: decode yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("requirements: decode json: %w", err)
		}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return req, nil
}
