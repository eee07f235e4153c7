package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// loadVars merges the variables of a data file with key=value assignments.
// Assignments win over the file.
func loadVars(dataPath string, assignments []string) (map[string]interface{}, error) {
	vars := make(map[string]interface{})
	if dataPath != "" {
		data, err := loadDataFile(dataPath)
		if err != nil {
			return nil, err
		}
		vars = data
	}

	for _, assignment := range assignments {
		key, value, ok := strings.Cut(assignment, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q: expected key=value", assignment)
		}
		vars[key] = value
	}
	return vars, nil
}

// loadDataFile reads template variables from a JSON (with comments), YAML
// or TOML file chosen by extension.
func loadDataFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}

	vars := make(map[string]interface{})
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), &vars)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &vars)
	case ".toml":
		err = toml.Unmarshal(data, &vars)
	default:
		return nil, fmt.Errorf("unsupported data file %s: want .json, .jsonc, .yaml, .yml or .toml", path)
	}
	if err != nil {
		return nil, fmt.Errorf("parse data file %s: %w", path, err)
	}
	return vars, nil
}
