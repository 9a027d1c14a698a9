package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetDefaultOpener(t *testing.T) {
	expected := map[string]string{
		"darwin":  "open",
		"linux":   "xdg-open",
		"windows": "start",
	}

	opener := getDefaultOpener()

	if expectedOpener, ok := expected[runtime.GOOS]; ok {
		if opener != expectedOpener {
			t.Errorf("getDefaultOpener() = %s, want %s for %s", opener, expectedOpener, runtime.GOOS)
		}
	} else if opener != "open" {
		t.Errorf("getDefaultOpener() = %s, want 'open' for unknown OS", opener)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.API.BaseURL != "https://api.imgur.com/3/gallery/search" {
		t.Errorf("API.BaseURL = %s", cfg.API.BaseURL)
	}
	if cfg.API.HTTPTimeout != 30*time.Second {
		t.Errorf("API.HTTPTimeout = %v, want 30s", cfg.API.HTTPTimeout)
	}
	if cfg.API.DefaultSort != "top" || cfg.API.DefaultWindow != "all" {
		t.Errorf("default sort/window = %s/%s, want top/all", cfg.API.DefaultSort, cfg.API.DefaultWindow)
	}

	if cfg.History.MaxEntries != 50 {
		t.Errorf("History.MaxEntries = %d, want 50", cfg.History.MaxEntries)
	}
	if cfg.History.Backend != "file" {
		t.Errorf("History.Backend = %s, want file", cfg.History.Backend)
	}
	if filepath.Base(cfg.History.Path) != "history.json" {
		t.Errorf("History.Path = %s, want .../history.json", cfg.History.Path)
	}

	if cfg.UI.PrefetchThreshold != 8 {
		t.Errorf("UI.PrefetchThreshold = %d, want 8", cfg.UI.PrefetchThreshold)
	}
	if cfg.Media.DefaultOpener == "" {
		t.Error("Media.DefaultOpener should not be empty")
	}
	if cfg.Keys.Bindings.Quit != "q" {
		t.Errorf("Keys.Bindings.Quit = %s, want 'q'", cfg.Keys.Bindings.Quit)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_FromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[api]
client_id = "abc123"
http_timeout = "10s"
default_sort = "viral"

[history]
max_entries = 20

[ui.colors]
primary = "#FFFFFF"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.ClientID != "abc123" {
		t.Errorf("API.ClientID = %s, want abc123", cfg.API.ClientID)
	}
	if cfg.API.HTTPTimeout != 10*time.Second {
		t.Errorf("API.HTTPTimeout = %v, want 10s", cfg.API.HTTPTimeout)
	}
	if cfg.API.DefaultSort != "viral" {
		t.Errorf("API.DefaultSort = %s, want viral", cfg.API.DefaultSort)
	}
	if cfg.History.MaxEntries != 20 {
		t.Errorf("History.MaxEntries = %d, want 20", cfg.History.MaxEntries)
	}
	if cfg.UI.Colors.Primary != "#FFFFFF" {
		t.Errorf("UI.Colors.Primary = %s, want #FFFFFF", cfg.UI.Colors.Primary)
	}

	// Siblings of overridden keys keep their defaults
	if cfg.UI.Colors.Secondary != "#4ECDC4" {
		t.Errorf("UI.Colors.Secondary = %s, want default #4ECDC4", cfg.UI.Colors.Secondary)
	}
	if cfg.API.DefaultWindow != "all" {
		t.Errorf("API.DefaultWindow = %s, want default all", cfg.API.DefaultWindow)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[api]\nclient_id = \"from-file\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("IMGFIND_API_CLIENT_ID", "from-env")
	t.Setenv("IMGFIND_HISTORY_MAX_ENTRIES", "7")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.ClientID != "from-env" {
		t.Errorf("API.ClientID = %s, want from-env", cfg.API.ClientID)
	}
	if cfg.History.MaxEntries != 7 {
		t.Errorf("History.MaxEntries = %d, want 7", cfg.History.MaxEntries)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"zero max entries", "[history]\nmax_entries = 0\n", "max_entries"},
		{"unknown backend", "[history]\nbackend = \"redis\"\n", "history.backend"},
		{"unknown engine", "[history]\nsuggest_engine = \"regex\"\n", "suggest_engine"},
		{"unknown sort", "[api]\ndefault_sort = \"random\"\n", "default_sort"},
		{"unknown window", "[api]\ndefault_window = \"decade\"\n", "default_window"},
		{"no image workers", "[images]\nmax_concurrent = 0\n", "max_concurrent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := Load(configPath)
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[api\nbroken"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load() should fail on malformed TOML")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"~/history.json", filepath.Join(home, "history.json")},
		{"/abs/path.db", "/abs/path.db"},
	}

	for _, tt := range tests {
		if got := expandPath(tt.input); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}

	if got := expandPath("relative.db"); !filepath.IsAbs(got) {
		t.Errorf("expandPath(relative.db) = %q, want absolute", got)
	}
}

func TestGenerateDefaultConfig_RoundTrip(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "sub", "config.toml")

	if err := GenerateDefaultConfig(configPath); err != nil {
		t.Fatalf("GenerateDefaultConfig() error = %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "prefetch_threshold") {
		t.Errorf("generated config missing ui.prefetch_threshold:\n%s", content)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() of generated config error = %v", err)
	}
	if cfg.API.HTTPTimeout != 30*time.Second {
		t.Errorf("API.HTTPTimeout = %v, want 30s after round trip", cfg.API.HTTPTimeout)
	}
	if cfg.History.MaxEntries != 50 {
		t.Errorf("History.MaxEntries = %d, want 50 after round trip", cfg.History.MaxEntries)
	}
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("TestConfig() should validate: %v", err)
	}
	if cfg.API.ClientID == "" {
		t.Error("TestConfig() should carry a client id")
	}
}
