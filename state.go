package cssloader

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

//go:embed demo/*.css
var demoFS embed.FS

// State is the persisted part of the configuration.
type State struct {
	Enabled          *bool  `yaml:"enabled,omitempty"`
	InstalledVersion string `yaml:"installed_version,omitempty"`
}

// IsEnabled returns the enabled flag, defaulting to true when unset.
func (s State) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// SetEnabled stores the enabled flag.
func (s *State) SetEnabled(enabled bool) {
	s.Enabled = &enabled
}

// StateStore keeps State in a YAML file.
type StateStore struct {
	path string
}

// NewStateStore returns a store backed by path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Path returns the backing file.
func (s *StateStore) Path() string {
	return s.path
}

// Load reads the state. A missing file yields the zero State.
func (s *StateStore) Load() (State, error) {
	var st State

	// #nosec G304 - path comes from trusted configuration
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("reading state file %s: %w", s.path, err)
	}

	if err := yaml.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parsing state file %s: %w", s.path, err)
	}
	return st, nil
}

// Save writes the state, creating parent directories as needed.
func (s *StateStore) Save(st State) error {
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating state directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing state file %s: %w", s.path, err)
	}
	return nil
}

// EnsureDirectory creates dir (mode 0755) if it does not exist.
func EnsureDirectory(dir string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("state")

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error("failed to create css directory", zap.String("dir", dir), zap.Error(err))
		return fmt.Errorf("creating css directory %s: %w", dir, err)
	}

	logger.Info("created css directory", zap.String("dir", dir))
	return nil
}

// CopyDemoFiles seeds dir with the bundled example stylesheets when it
// holds no *.css files yet. Existing files are never overwritten.
// It returns the names of the files it copied.
func CopyDemoFiles(dir string, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("state")

	existing, err := filepath.Glob(filepath.Join(dir, "*.css"))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	if len(existing) > 0 {
		return nil, nil
	}

	entries, err := fs.ReadDir(demoFS, "demo")
	if err != nil {
		return nil, fmt.Errorf("reading demo files: %w", err)
	}

	var copied []string
	for _, e := range entries {
		target := filepath.Join(dir, e.Name())
		if _, err := os.Stat(target); err == nil {
			continue
		}

		data, err := demoFS.ReadFile(path.Join("demo", e.Name()))
		if err != nil {
			return copied, fmt.Errorf("reading demo file %s: %w", e.Name(), err)
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return copied, fmt.Errorf("copying demo file %s: %w", e.Name(), err)
		}

		logger.Info("copied demo file", zap.String("file", e.Name()))
		copied = append(copied, e.Name())
	}

	return copied, nil
}

// Migrate runs the one-time upgrade steps when the installed version is
// missing or older than current: the CSS directory is created and the new
// version recorded. It reports whether an upgrade happened.
func Migrate(store *StateStore, dir, current string, logger *zap.Logger) (bool, error) {
	st, err := store.Load()
	if err != nil {
		return false, err
	}

	cur := canonicalVersion(current)
	if !semver.IsValid(cur) {
		return false, fmt.Errorf("invalid version %q", current)
	}

	installed := canonicalVersion(st.InstalledVersion)
	if semver.IsValid(installed) && semver.Compare(installed, cur) >= 0 {
		return false, nil
	}

	if err := EnsureDirectory(dir, logger); err != nil {
		return false, err
	}

	st.InstalledVersion = strings.TrimPrefix(cur, "v")
	if err := store.Save(st); err != nil {
		return false, err
	}
	return true, nil
}

// canonicalVersion adds the "v" prefix x/mod/semver expects.
func canonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
