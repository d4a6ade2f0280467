// Package settings provides storage for POEditor API tokens so they do not
// have to live in a project's config file.
//
// Tokens are stored in the XDG data directory:
//
//	$XDG_DATA_HOME/poeditor-connector/auth.json  (default: ~/.local/share/poeditor-connector/)
//
// The file is a JSON object keyed by POEditor project ID. The special key
// "default" holds a token used for any project without its own entry.
//
// File permissions are 0600 (owner read/write only).
//
// Lookup order for the API token (see config.Load):
//  1. POEDITOR_API_TOKEN environment variable (highest priority)
//  2. apiToken entry of the config file
//  3. This token store (project entry, then "default")
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	dataDirName = "poeditor-connector"
	fileName    = "auth.json"
)

// DefaultKey is the store key used for a token shared by all projects.
const DefaultKey = "default"

// Info is a single stored token.
type Info struct {
	Token string `json:"token"`
	// Saved is the Unix timestamp of the last update (0 = unknown).
	Saved int64 `json:"saved,omitempty"`
}

// Store holds all tokens, keyed by project ID or DefaultKey.
type Store map[string]*Info

// ---------------------------------------------------------------------------
// File path
// ---------------------------------------------------------------------------

// dataDir returns the XDG data directory for poeditor-connector.
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

func filePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// FilePath returns the auth.json file path for display purposes.
func FilePath() string {
	p, err := filePath()
	if err != nil {
		return ""
	}
	return p
}

// DataDir returns the data directory path.
func DataDir() (string, error) {
	return dataDir()
}

// ---------------------------------------------------------------------------
// Load / Save
// ---------------------------------------------------------------------------

// Load reads the token store from disk.
// Returns an empty store if the file doesn't exist or is invalid.
func Load() Store {
	path, err := filePath()
	if err != nil {
		return make(Store)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return make(Store)
	}

	var store Store
	if err := json.Unmarshal(data, &store); err != nil || store == nil {
		return make(Store)
	}
	return store
}

// Save writes the token store to disk with 0600 permissions.
func Save(store Store) error {
	path, err := filePath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling tokens: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing auth file: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Get / Set / Remove
// ---------------------------------------------------------------------------

// keyFor maps an empty project ID to DefaultKey.
func keyFor(projectID string) string {
	if projectID == "" {
		return DefaultKey
	}
	return projectID
}

// SetToken stores a token for a project (upsert). An empty projectID
// stores the default token.
func SetToken(projectID, token string) error {
	store := Load()
	store[keyFor(projectID)] = &Info{Token: token, Saved: time.Now().Unix()}
	return Save(store)
}

// Token returns the token stored under exactly this project ID
// (or the default entry for ""), or "" if none.
func Token(projectID string) string {
	info := Load()[keyFor(projectID)]
	if info == nil {
		return ""
	}
	return info.Token
}

// ResolveToken returns the token for a project, falling back to the
// default entry.
func ResolveToken(projectID string) string {
	if tok := Token(projectID); tok != "" {
		return tok
	}
	return Token(DefaultKey)
}

// Remove deletes the token of a project. Missing entries are a no-op.
func Remove(projectID string) error {
	store := Load()
	key := keyFor(projectID)
	if _, ok := store[key]; !ok {
		return nil
	}
	delete(store, key)
	return Save(store)
}

// RemoveAll removes the token file.
func RemoveAll() error {
	path, err := filePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing auth file: %w", err)
	}
	return nil
}

// MaskKey returns a masked version of a token for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
