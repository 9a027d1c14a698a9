package config

import (
	"os"
	"path/filepath"
	"time"
)

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	dir := filepath.Join(os.TempDir(), "imgfind-test")
	return &Config{
		API: APIConfig{
			BaseURL:           "http://127.0.0.1/3/gallery/search",
			ClientID:          "test-client",
			HTTPTimeout:       5 * time.Second,
			UserAgent:         "imgfind-test/1.0",
			DefaultSort:       "top",
			DefaultWindow:     "all",
			RequestsPerSecond: 0, // unlimited
			Burst:             1,
		},
		History: HistoryConfig{
			Backend:       "file",
			Path:          filepath.Join(dir, "history.json"),
			DBPath:        filepath.Join(dir, "imgfind.db"),
			DBTimeout:     1 * time.Second,
			MaxEntries:    50,
			SuggestEngine: "fuzzy",
		},
		Images: ImagesConfig{
			MaxConcurrent: 4,
			MaxBytes:      1 << 20,
			HTTPTimeout:   5 * time.Second,
		},
		UI:    defaultConfig().UI,
		Media: defaultConfig().Media,
		Keys:  defaultConfig().Keys,
		Log:   LogConfig{Level: "off"},
	}
}
