package screenshot

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestSettingsStore_RoundTrip(t *testing.T) {
	store := NewSettingsStore(DefaultSettings())

	want := Settings{WatchDir: strPtr("/home/me/Desktop"), AutoExplain: false}
	store.Set(want)

	got := store.Get()
	if !got.Equal(want) {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestSettingsStore_GetReturnsSnapshot(t *testing.T) {
	store := NewSettingsStore(Settings{WatchDir: strPtr("/a"), AutoExplain: true})

	snap := store.Get()
	*snap.WatchDir = "/mutated"
	snap.AutoExplain = false

	again := store.Get()
	if *again.WatchDir != "/a" || !again.AutoExplain {
		t.Errorf("mutating a snapshot changed the store: %+v", again)
	}
}

func TestSettingsStore_SetCopiesInput(t *testing.T) {
	dir := "/a"
	store := NewSettingsStore(DefaultSettings())
	store.Set(Settings{WatchDir: &dir})

	dir = "/b"
	if got := *store.Get().WatchDir; got != "/a" {
		t.Errorf("store shares caller's pointer, got %q", got)
	}
}

func TestSettingsStore_NoValidation(t *testing.T) {
	store := NewSettingsStore(DefaultSettings())
	store.Set(Settings{WatchDir: strPtr("not/a/real\x00dir")})

	if *store.Get().WatchDir != "not/a/real\x00dir" {
		t.Error("expected any string to be accepted")
	}
}

func TestSettingsStore_ZeroValue(t *testing.T) {
	var store SettingsStore
	if !store.Get().Equal(DefaultSettings()) {
		t.Errorf("zero store should report defaults, got %+v", store.Get())
	}
}

func TestSettingsStore_ConcurrentAccess(t *testing.T) {
	a := Settings{WatchDir: strPtr("/dir/a"), AutoExplain: true}
	b := Settings{WatchDir: strPtr("/dir/b"), AutoExplain: false}
	store := NewSettingsStore(a)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if (i+j)%2 == 0 {
					store.Set(a)
				} else {
					store.Set(b)
				}
			}
		}(i)
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				got := store.Get()
				if !got.Equal(a) && !got.Equal(b) {
					t.Errorf("observed partially written settings: %+v", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestSettings_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b Settings
		want bool
	}{
		{"both default", DefaultSettings(), DefaultSettings(), true},
		{"same dir", Settings{WatchDir: strPtr("/x")}, Settings{WatchDir: strPtr("/x")}, true},
		{"different dir", Settings{WatchDir: strPtr("/x")}, Settings{WatchDir: strPtr("/y")}, false},
		{"nil vs set", Settings{}, Settings{WatchDir: strPtr("/x")}, false},
		{"different flag", Settings{AutoExplain: true}, Settings{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadSettings_Missing(t *testing.T) {
	s, err := LoadSettings(t.TempDir())
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if !s.Equal(DefaultSettings()) {
		t.Errorf("expected defaults, got %+v", s)
	}
	if !s.AutoExplain {
		t.Error("auto explain should default to true")
	}
}

func TestLoadSettings_PersistedFormat(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Settings
	}{
		{"full", `{"screenshots_dir":"/shots","auto_prompt":false}`, Settings{WatchDir: strPtr("/shots")}},
		{"null dir", `{"screenshots_dir":null,"auto_prompt":true}`, Settings{AutoExplain: true}},
		{"missing auto_prompt", `{"screenshots_dir":"/shots"}`, Settings{WatchDir: strPtr("/shots"), AutoExplain: true}},
		{"empty object", `{}`, DefaultSettings()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, SettingsFileName), []byte(tt.json), 0644); err != nil {
				t.Fatalf("write settings: %v", err)
			}
			got, err := LoadSettings(dir)
			if err != nil {
				t.Fatalf("LoadSettings failed: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("LoadSettings() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadSettings_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, SettingsFileName), []byte("{"), 0644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	if _, err := LoadSettings(dir); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestSettings_SaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "askollama")
	want := Settings{WatchDir: strPtr("/home/me/shots"), AutoExplain: false}

	if err := want.Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, SettingsFileName))
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	expected := "{\n  \"screenshots_dir\": \"/home/me/shots\",\n  \"auto_prompt\": false\n}"
	if string(data) != expected {
		t.Errorf("unexpected file content:\n%s", data)
	}

	got, err := LoadSettings(dir)
	if err != nil {
		t.Fatalf("LoadSettings failed: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestSettings_ResolveWatchDir(t *testing.T) {
	t.Setenv("XDG_PICTURES_DIR", "/pics")

	if got := DefaultSettings().ResolveWatchDir(); got != filepath.Join("/pics", "Screenshots") {
		t.Errorf("default watch dir = %q", got)
	}

	s := Settings{WatchDir: strPtr("/custom")}
	if got := s.ResolveWatchDir(); got != "/custom" {
		t.Errorf("override watch dir = %q", got)
	}
}

func TestDefaultWatchDir_FallsBackToTemp(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("user-dirs lookup is linux only")
	}
	home := t.TempDir()
	t.Setenv("XDG_PICTURES_DIR", "")
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	want := filepath.Join(os.TempDir(), "Screenshots")
	if got := DefaultWatchDir(); got != want {
		t.Errorf("DefaultWatchDir() = %q, want %q", got, want)
	}
}

func TestReadUserDir(t *testing.T) {
	home := "/home/me"
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"home relative", `XDG_PICTURES_DIR="$HOME/Pictures"`, "/home/me/Pictures"},
		{"absolute", `XDG_PICTURES_DIR="/data/pics"`, "/data/pics"},
		{"disabled", `XDG_PICTURES_DIR="$HOME/"`, ""},
		{"commented", `# XDG_PICTURES_DIR="$HOME/Pictures"`, ""},
		{"other key", `XDG_MUSIC_DIR="$HOME/Music"`, ""},
		{"relative", `XDG_PICTURES_DIR="Pictures"`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "user-dirs.dirs")
			if err := os.WriteFile(path, []byte(tt.content+"\n"), 0644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if got := readUserDir(path, "XDG_PICTURES_DIR", home); got != tt.want {
				t.Errorf("readUserDir() = %q, want %q", got, tt.want)
			}
		})
	}
}
