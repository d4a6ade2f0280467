package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// File schema
// ---------------------------------------------------------------------------

// File is the on-disk configuration, before defaults and validation.
// JSON and YAML files share the same camelCase keys.
type File struct {
	APIToken  string     `json:"apiToken" yaml:"apiToken"`
	ProjectID flexString `json:"projectId" yaml:"projectId"`

	ImportFile         string `json:"importFile" yaml:"importFile"`
	ImportUpdating     string `json:"importUpdating" yaml:"importUpdating"`
	ImportLanguage     string `json:"importLanguage" yaml:"importLanguage"`
	ImportOverwrite    Flag   `json:"importOverwrite" yaml:"importOverwrite"`
	ImportSyncTerms    Flag   `json:"importSyncTerms" yaml:"importSyncTerms"`
	ImportFuzzyTrigger Flag   `json:"importFuzzyTrigger" yaml:"importFuzzyTrigger"`
	ImportTags         string `json:"importTags" yaml:"importTags"`

	ExportDir         string            `json:"exportDir" yaml:"exportDir"`
	ExportFiles       map[string]string `json:"exportFiles" yaml:"exportFiles"`
	ExportFilters     string            `json:"exportFilters" yaml:"exportFilters"`
	ExportTags        string            `json:"exportTags" yaml:"exportTags"`
	ExportType        string            `json:"exportType" yaml:"exportType"`
	ExportConcurrency int               `json:"exportConcurrency" yaml:"exportConcurrency"`

	BaseURL string `json:"baseUrl" yaml:"baseUrl"`
}

// readFile decodes a config file. Files ending in .yaml or .yml are read
// as YAML, everything else as JSON.
func readFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Message: "cannot read config file", Err: err}
	}

	var f File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, &Error{Path: path, Message: "invalid YAML", Err: err}
		}
	default:
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, &Error{Path: path, Message: "invalid JSON", Err: err}
		}
	}
	return &f, nil
}

// ---------------------------------------------------------------------------
// Flag
// ---------------------------------------------------------------------------

// Flag is a POEditor boolean-as-integer parameter. It decodes from 0, 1,
// true, false or their quoted forms and is sent to the API as "0" or "1".
type Flag int

func (f *Flag) parse(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true":
		*f = 1
	case "0", "false", "", "null", "~":
		*f = 0
	default:
		return fmt.Errorf("flag must be 0, 1, true or false, got %q", s)
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if strings.HasPrefix(s, `"`) {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = unq
	}
	return f.parse(s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: flag must be a scalar", node.Line)
	}
	return f.parse(node.Value)
}

// Bool reports whether the flag is set.
func (f Flag) Bool() bool { return f == 1 }

// String returns the form value sent to the API.
func (f Flag) String() string { return strconv.Itoa(int(f)) }

// ---------------------------------------------------------------------------
// flexString
// ---------------------------------------------------------------------------

// flexString accepts both strings and numbers. POEditor project IDs are
// numeric but opaque to us.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	switch {
	case bytes.Equal(raw, []byte("null")):
		*s = ""
	case len(raw) > 0 && raw[0] == '"':
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return err
		}
		*s = flexString(str)
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("must be a string or a number, got %s", raw)
		}
		*s = flexString(n.String())
	}
	return nil
}

func (s *flexString) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: must be a string or a number", node.Line)
	}
	if node.Tag == "!!null" {
		*s = ""
		return nil
	}
	*s = flexString(node.Value)
	return nil
}
