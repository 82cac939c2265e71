package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/BartekS5/lakecheck/pkg/models"
)

// LoadLayout reads a layout file (.json, .yaml or .yml). Keys the file does
// not set keep their DefaultLayout value. An empty path returns the default.
func LoadLayout(filePath string) (models.Layout, error) {
	layout := models.DefaultLayout()
	if filePath == "" {
		return layout, nil
	}

	bytes, err := os.ReadFile(filePath)
	if err != nil {
		return layout, fmt.Errorf("failed to read layout file '%s': %w", filePath, err)
	}

	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".json":
		err = json.Unmarshal(bytes, &layout)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(bytes, &layout)
	default:
		return layout, fmt.Errorf("unsupported layout file format: %s", ext)
	}
	if err != nil {
		return layout, fmt.Errorf("failed to parse layout file '%s': %w", filePath, err)
	}

	return layout.WithDefaults(), nil
}
