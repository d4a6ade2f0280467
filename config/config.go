// Package config loads the connector configuration: a JSON (or YAML) file
// plus environment overrides, resolved once per run into an immutable Config.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/Societec/poeditor-connector/settings"
)

// EnvAPIToken overrides the apiToken entry of the config file.
const EnvAPIToken = "POEDITOR_API_TOKEN"

// DefaultBaseURL is the POEditor API v2 root.
const DefaultBaseURL = "https://api.poeditor.com/v2"

// Defaults for optional keys.
const (
	DefaultImportUpdating = "terms_translations"
	DefaultImportLanguage = "en"
	DefaultImportTags     = "all"
	DefaultExportFilters  = "all"
	DefaultExportTags     = "all"
	DefaultExportType     = "xtb"
)

// Config is the resolved configuration of one run. It is built by Load and
// must not be modified afterwards; pass it by value.
type Config struct {
	// Source is the path the configuration was loaded from.
	Source string

	APIToken  string
	ProjectID string
	BaseURL   string

	ImportFile         string
	ImportUpdating     string
	ImportLanguage     string
	ImportOverwrite    Flag
	ImportSyncTerms    Flag
	ImportFuzzyTrigger Flag
	ImportTags         string

	ExportDir     string
	ExportFiles   map[string]string // language code -> file name relative to ExportDir
	ExportFilters string
	ExportTags    string
	ExportType    string
	// ExportConcurrency caps simultaneous language downloads (0 = unbounded).
	ExportConcurrency int
}

// ExportFile returns the output file name configured for a language.
func (c Config) ExportFile(lang string) (string, bool) {
	name, ok := c.ExportFiles[lang]
	return name, ok
}

// Load reads, validates and resolves the configuration at path.
// It creates ExportDir (non-recursively) when it does not exist yet.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, &Error{Message: "no config file given"}
	}

	f, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	return resolve(path, f)
}

func resolve(path string, f *File) (Config, error) {
	cfg := Config{
		Source:             path,
		ProjectID:          strings.TrimSpace(string(f.ProjectID)),
		BaseURL:            lo.CoalesceOrEmpty(f.BaseURL, DefaultBaseURL),
		ImportFile:         f.ImportFile,
		ImportUpdating:     lo.CoalesceOrEmpty(f.ImportUpdating, DefaultImportUpdating),
		ImportLanguage:     lo.CoalesceOrEmpty(f.ImportLanguage, DefaultImportLanguage),
		ImportOverwrite:    f.ImportOverwrite,
		ImportSyncTerms:    f.ImportSyncTerms,
		ImportFuzzyTrigger: f.ImportFuzzyTrigger,
		ImportTags:         lo.CoalesceOrEmpty(f.ImportTags, DefaultImportTags),
		ExportDir:          f.ExportDir,
		ExportFilters:      lo.CoalesceOrEmpty(f.ExportFilters, DefaultExportFilters),
		ExportTags:         lo.CoalesceOrEmpty(f.ExportTags, DefaultExportTags),
		ExportType:         lo.CoalesceOrEmpty(f.ExportType, DefaultExportType),
		ExportConcurrency:  f.ExportConcurrency,
	}

	if cfg.ProjectID == "" {
		return Config{}, fieldError(path, "projectId", "must contain a POEditor project id")
	}

	// Env wins over the file so secrets can be injected without editing it.
	cfg.APIToken = lo.CoalesceOrEmpty(os.Getenv(EnvAPIToken), f.APIToken, settings.ResolveToken(cfg.ProjectID))
	if cfg.APIToken == "" {
		return Config{}, fieldError(path, "apiToken",
			fmt.Sprintf("must contain an api token (or set %s, or run 'poeditor-connector auth login')", EnvAPIToken))
	}

	if cfg.ImportFile == "" {
		return Config{}, fieldError(path, "importFile", "must contain an existing import file")
	}
	if info, err := os.Stat(cfg.ImportFile); err != nil {
		return Config{}, &Error{Path: path, Field: "importFile", Message: "must contain an existing import file", Err: err}
	} else if info.IsDir() {
		return Config{}, fieldError(path, "importFile", cfg.ImportFile+" is a directory")
	}

	if cfg.ExportDir == "" {
		return Config{}, fieldError(path, "exportDir", "must contain an export directory")
	}

	if cfg.ExportConcurrency < 0 {
		return Config{}, fieldError(path, "exportConcurrency", "must be 0 (unbounded) or positive")
	}

	if err := validateBaseURL(cfg.BaseURL); err != nil {
		return Config{}, &Error{Path: path, Field: "baseUrl", Message: "invalid API url", Err: err}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	files, err := validateExportFiles(f.ExportFiles)
	if err != nil {
		return Config{}, &Error{Path: path, Field: "exportFiles", Message: "invalid mapping", Err: err}
	}
	cfg.ExportFiles = files

	if err := ensureDir(cfg.ExportDir); err != nil {
		return Config{}, &Error{Path: path, Field: "exportDir", Message: "cannot create export directory", Err: err}
	}

	return cfg, nil
}

// validateExportFiles copies the mapping and rejects names that leave the
// export directory or that two languages would write concurrently.
func validateExportFiles(m map[string]string) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}

	files := make(map[string]string, len(m))
	var errs []error
	for _, lang := range sortedKeys(m) {
		name := m[lang]
		switch {
		case strings.TrimSpace(lang) == "":
			errs = append(errs, errors.New("empty language code"))
		case name == "":
			errs = append(errs, fmt.Errorf("%s: empty file name", lang))
		case !filepath.IsLocal(name):
			errs = append(errs, fmt.Errorf("%s: %q must be a relative path inside exportDir", lang, name))
		default:
			files[lang] = filepath.Clean(name)
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	dups := lo.FindDuplicates(lo.Values(files))
	if len(dups) > 0 {
		sort.Strings(dups)
		for _, dup := range dups {
			langs := lo.Filter(sortedKeys(files), func(lang string, _ int) bool { return files[lang] == dup })
			errs = append(errs, fmt.Errorf("%q is mapped by several languages (%s)", dup, strings.Join(langs, ", ")))
		}
		return nil, errors.Join(errs...)
	}

	return files, nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// ensureDir creates dir when missing. The parent must already exist.
func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return os.Mkdir(dir, 0755)
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
