package screenshot

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
)

// SettingsFileName is the name of the persisted settings file within the config directory
const SettingsFileName = "settings.json"

// DefaultScreenshotsSubdir is appended to the pictures directory when no
// watch directory override is set.
const DefaultScreenshotsSubdir = "Screenshots"

// Settings is the runtime-mutable configuration of the pipeline.
type Settings struct {
	// WatchDir overrides the default screenshots directory. Nil means default.
	WatchDir *string `json:"screenshots_dir"`
	// AutoExplain sends every extracted text to the explanation service.
	AutoExplain bool `json:"auto_prompt"`
}

// DefaultSettings returns the settings used when nothing is persisted.
func DefaultSettings() Settings {
	return Settings{AutoExplain: true}
}

// clone returns a deep copy so callers never share the WatchDir pointer.
func (s Settings) clone() Settings {
	if s.WatchDir != nil {
		dir := *s.WatchDir
		s.WatchDir = &dir
	}
	return s
}

// ResolveWatchDir returns the override if set, otherwise the platform default.
func (s Settings) ResolveWatchDir() string {
	if s.WatchDir != nil {
		return expandTilde(*s.WatchDir)
	}
	return DefaultWatchDir()
}

// Equal reports whether two settings hold the same values.
func (s Settings) Equal(o Settings) bool {
	if s.AutoExplain != o.AutoExplain {
		return false
	}
	if (s.WatchDir == nil) != (o.WatchDir == nil) {
		return false
	}
	return s.WatchDir == nil || *s.WatchDir == *o.WatchDir
}

// SettingsStore holds the current Settings. Readers get a snapshot copy and
// writers replace the whole value, so a reader never sees a half-written value
// and no lock is held while the pipeline waits on external work.
type SettingsStore struct {
	current atomic.Pointer[Settings]
}

// NewSettingsStore creates a store holding initial.
func NewSettingsStore(initial Settings) *SettingsStore {
	s := &SettingsStore{}
	s.Set(initial)
	return s
}

// Get returns a snapshot of the current settings.
func (s *SettingsStore) Get() Settings {
	p := s.current.Load()
	if p == nil {
		return DefaultSettings()
	}
	return p.clone()
}

// Set atomically replaces the current settings. No validation is performed.
func (s *SettingsStore) Set(settings Settings) {
	c := settings.clone()
	s.current.Store(&c)
}

// LoadSettings reads settings.json from dir. A missing file yields the defaults.
func LoadSettings(dir string) (Settings, error) {
	data, err := os.ReadFile(filepath.Join(dir, SettingsFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return Settings{}, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// Save writes the settings to dir/settings.json, creating dir if needed.
func (s Settings) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, SettingsFileName), data, 0644)
}

// DefaultWatchDir returns <pictures dir>/Screenshots, or <temp dir>/Screenshots when
// no pictures directory can be determined.
func DefaultWatchDir() string {
	pictures := picturesDir()
	if pictures == "" {
		pictures = os.TempDir()
	}
	return filepath.Join(pictures, DefaultScreenshotsSubdir)
}

// picturesDir resolves the user's pictures directory. On Linux this follows
// the XDG user-dirs convention and returns "" when it is not configured.
func picturesDir() string {
	if dir := os.Getenv("XDG_PICTURES_DIR"); dir != "" {
		return dir
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		return filepath.Join(home, "Pictures")
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		configHome = filepath.Join(home, ".config")
	}
	return readUserDir(filepath.Join(configHome, "user-dirs.dirs"), "XDG_PICTURES_DIR", home)
}

// readUserDir extracts one entry from a user-dirs.dirs file, e.g.
// XDG_PICTURES_DIR="$HOME/Pictures".
func readUserDir(path, key, home string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok || strings.TrimSpace(name) != key {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		value = strings.Replace(value, "$HOME", home, 1)
		if !filepath.IsAbs(value) {
			return ""
		}
		// "$HOME/" alone means the directory is disabled.
		if filepath.Clean(value) == filepath.Clean(home) {
			return ""
		}
		return value
	}
	return ""
}
