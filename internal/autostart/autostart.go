// Package autostart registers the service to start at login using an XDG
// autostart desktop entry.
package autostart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// EntryName is the desktop entry file name.
const EntryName = "askollama.desktop"

// ErrUnsupported is returned on platforms without XDG autostart.
var ErrUnsupported = errors.New("autostart is not supported on this platform")

// Entry manages one autostart desktop entry.
type Entry struct {
	// Dir is the autostart directory, usually ~/.config/autostart.
	Dir string
	// Exec is the command line launched at login.
	Exec string
}

// New returns the entry in the user's autostart directory that runs
// `<executable> start`.
func New() (*Entry, error) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return nil, ErrUnsupported
	}

	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}

	return &Entry{Dir: dir, Exec: quoteExec(exe) + " start"}, nil
}

// Dir returns $XDG_CONFIG_HOME/autostart, falling back to ~/.config/autostart.
func Dir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "autostart"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "autostart"), nil
}

// Path returns the desktop entry path.
func (e *Entry) Path() string {
	return filepath.Join(e.Dir, EntryName)
}

// Enable writes the desktop entry, replacing any existing one.
func (e *Entry) Enable() error {
	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return fmt.Errorf("create autostart directory: %w", err)
	}
	if err := os.WriteFile(e.Path(), []byte(e.render()), 0644); err != nil {
		return fmt.Errorf("write desktop entry: %w", err)
	}
	return nil
}

// Disable removes the desktop entry. A missing entry is not an error.
func (e *Entry) Disable() error {
	if err := os.Remove(e.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove desktop entry: %w", err)
	}
	return nil
}

// IsEnabled reports whether the desktop entry exists.
func (e *Entry) IsEnabled() (bool, error) {
	_, err := os.Stat(e.Path())
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (e *Entry) render() string {
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	b.WriteString("Name=askollama\n")
	b.WriteString("Comment=Explain screenshots with a local language model\n")
	b.WriteString("Exec=" + e.Exec + "\n")
	b.WriteString("Terminal=false\n")
	b.WriteString("X-GNOME-Autostart-enabled=true\n")
	return b.String()
}

// quoteExec quotes a path for the Exec key when it contains spaces.
func quoteExec(path string) string {
	if !strings.ContainsAny(path, " \t\"") {
		return path
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "`", "\\`", "$", `\$`)
	return `"` + r.Replace(path) + `"`
}
