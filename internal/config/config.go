package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	History HistoryConfig `mapstructure:"history"`
	Images  ImagesConfig  `mapstructure:"images"`
	UI      UIConfig      `mapstructure:"ui"`
	Media   MediaConfig   `mapstructure:"media"`
	Keys    KeyConfig     `mapstructure:"keys"`
	Log     LogConfig     `mapstructure:"log"`
}

type APIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	ClientID          string        `mapstructure:"client_id"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	DefaultSort       string        `mapstructure:"default_sort"`
	DefaultWindow     string        `mapstructure:"default_window"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

type HistoryConfig struct {
	// Backend is "file" (JSON array) or "bolt".
	Backend       string        `mapstructure:"backend"`
	Path          string        `mapstructure:"path"`
	DBPath        string        `mapstructure:"db_path"`
	DBTimeout     time.Duration `mapstructure:"db_timeout"`
	MaxEntries    int           `mapstructure:"max_entries"`
	SuggestEngine string        `mapstructure:"suggest_engine"`
}

type ImagesConfig struct {
	MaxConcurrent int64         `mapstructure:"max_concurrent"`
	MaxBytes      int64         `mapstructure:"max_bytes"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
}

type UIConfig struct {
	Colors            UIColors `mapstructure:"colors"`
	PrefetchThreshold int      `mapstructure:"prefetch_threshold"`
	PageSlots         int      `mapstructure:"page_slots"`
}

type UIColors struct {
	Primary   string `mapstructure:"primary"`
	Secondary string `mapstructure:"secondary"`
	Accent    string `mapstructure:"accent"`
	Text      string `mapstructure:"text"`
	Muted     string `mapstructure:"muted"`
	Error     string `mapstructure:"error"`
	Success   string `mapstructure:"success"`
}

type MediaConfig struct {
	Darwin        []string `mapstructure:"darwin"`
	Linux         []string `mapstructure:"linux"`
	Windows       []string `mapstructure:"windows"`
	DefaultOpener string   `mapstructure:"default_opener"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings"`
}

type KeyBindings struct {
	Quit    string `mapstructure:"quit"`
	History string `mapstructure:"history"`
	Delete  string `mapstructure:"delete"`
	Open    string `mapstructure:"open"`
	Retry   string `mapstructure:"retry"`
	Clear   string `mapstructure:"clear"`
	Back    string `mapstructure:"back"`
	Help    string `mapstructure:"help"`
	Sort    string `mapstructure:"sort"`
	Window  string `mapstructure:"window"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

var (
	validSorts   = []string{"top", "viral", "time"}
	validWindows = []string{"all", "day", "week", "month", "year"}
)

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".imgfind")

	return &Config{
		API: APIConfig{
			BaseURL:           "https://api.imgur.com/3/gallery/search",
			HTTPTimeout:       30 * time.Second,
			UserAgent:         "imgfind/1.0 (https://github.com/pders01/imgfind)",
			DefaultSort:       "top",
			DefaultWindow:     "all",
			RequestsPerSecond: 2,
			Burst:             4,
		},
		History: HistoryConfig{
			Backend:       "file",
			Path:          filepath.Join(dataDir, "history.json"),
			DBPath:        filepath.Join(dataDir, "imgfind.db"),
			DBTimeout:     1 * time.Second,
			MaxEntries:    50,
			SuggestEngine: "fuzzy",
		},
		Images: ImagesConfig{
			MaxConcurrent: 6,
			MaxBytes:      20 << 20,
			HTTPTimeout:   30 * time.Second,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:   "#FF6B6B",
				Secondary: "#4ECDC4",
				Accent:    "#95E1D3",
				Text:      "#EAEAEA",
				Muted:     "#94A3B8",
				Error:     "#F87171",
				Success:   "#4ADE80",
			},
			PrefetchThreshold: 8,
			PageSlots:         24,
		},
		Media: MediaConfig{
			Darwin:        []string{"qlmanage", "open"},
			Linux:         []string{"imv", "sxiv", "feh", "eog", "xdg-open"},
			Windows:       []string{"start"},
			DefaultOpener: getDefaultOpener(),
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:    "q",
				History: "h",
				Delete:  "x",
				Open:    "o",
				Retry:   "r",
				Clear:   "l",
				Back:    "esc",
				Help:    "?",
				Sort:    "t",
				Window:  "p",
			},
		},
		Log: LogConfig{
			Level: "off",
			File:  filepath.Join(dataDir, "imgfind.log"),
		},
	}
}

func getDefaultOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "linux":
		return "xdg-open"
	case "windows":
		return "start"
	default:
		return "open"
	}
}

// setDefaults registers every leaf key so a partial section in the config
// file does not wipe the defaults of its siblings.
func setDefaults(v *viper.Viper, cfg *Config) {
	for key, value := range flatten(cfg) {
		v.SetDefault(key, value)
	}
}

func flatten(cfg *Config) map[string]any {
	return map[string]any{
		"api.base_url":            cfg.API.BaseURL,
		"api.client_id":           cfg.API.ClientID,
		"api.http_timeout":        cfg.API.HTTPTimeout,
		"api.user_agent":          cfg.API.UserAgent,
		"api.default_sort":        cfg.API.DefaultSort,
		"api.default_window":      cfg.API.DefaultWindow,
		"api.requests_per_second": cfg.API.RequestsPerSecond,
		"api.burst":               cfg.API.Burst,

		"history.backend":        cfg.History.Backend,
		"history.path":           cfg.History.Path,
		"history.db_path":        cfg.History.DBPath,
		"history.db_timeout":     cfg.History.DBTimeout,
		"history.max_entries":    cfg.History.MaxEntries,
		"history.suggest_engine": cfg.History.SuggestEngine,

		"images.max_concurrent": cfg.Images.MaxConcurrent,
		"images.max_bytes":      cfg.Images.MaxBytes,
		"images.http_timeout":   cfg.Images.HTTPTimeout,

		"ui.colors.primary":     cfg.UI.Colors.Primary,
		"ui.colors.secondary":   cfg.UI.Colors.Secondary,
		"ui.colors.accent":      cfg.UI.Colors.Accent,
		"ui.colors.text":        cfg.UI.Colors.Text,
		"ui.colors.muted":       cfg.UI.Colors.Muted,
		"ui.colors.error":       cfg.UI.Colors.Error,
		"ui.colors.success":     cfg.UI.Colors.Success,
		"ui.prefetch_threshold": cfg.UI.PrefetchThreshold,
		"ui.page_slots":         cfg.UI.PageSlots,

		"media.darwin":         cfg.Media.Darwin,
		"media.linux":          cfg.Media.Linux,
		"media.windows":        cfg.Media.Windows,
		"media.default_opener": cfg.Media.DefaultOpener,

		"keys.modifier":         cfg.Keys.Modifier,
		"keys.bindings.quit":    cfg.Keys.Bindings.Quit,
		"keys.bindings.history": cfg.Keys.Bindings.History,
		"keys.bindings.delete":  cfg.Keys.Bindings.Delete,
		"keys.bindings.open":    cfg.Keys.Bindings.Open,
		"keys.bindings.retry":   cfg.Keys.Bindings.Retry,
		"keys.bindings.clear":   cfg.Keys.Bindings.Clear,
		"keys.bindings.back":    cfg.Keys.Bindings.Back,
		"keys.bindings.help":    cfg.Keys.Bindings.Help,
		"keys.bindings.sort":    cfg.Keys.Bindings.Sort,
		"keys.bindings.window":  cfg.Keys.Bindings.Window,

		"log.level": cfg.Log.Level,
		"log.file":  cfg.Log.File,
	}
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, defaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		homeDir, _ := os.UserHomeDir()
		configDir := filepath.Join(homeDir, ".config", "imgfind")

		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(configDir)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("IMGFIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	expandPaths(&config)

	return &config, nil
}

// Validate rejects values the core cannot operate with.
func (c *Config) Validate() error {
	if c.History.MaxEntries <= 0 {
		return fmt.Errorf("history.max_entries must be greater than 0")
	}
	if c.History.MaxEntries > 1000 {
		return fmt.Errorf("history.max_entries cannot exceed 1000")
	}
	if !oneOf(c.History.Backend, "file", "bolt") {
		return fmt.Errorf("history.backend must be \"file\" or \"bolt\", got %q", c.History.Backend)
	}
	if !oneOf(c.History.SuggestEngine, "fuzzy", "bleve") {
		return fmt.Errorf("history.suggest_engine must be \"fuzzy\" or \"bleve\", got %q", c.History.SuggestEngine)
	}
	if !oneOf(c.API.DefaultSort, validSorts...) {
		return fmt.Errorf("api.default_sort must be one of %v, got %q", validSorts, c.API.DefaultSort)
	}
	if !oneOf(c.API.DefaultWindow, validWindows...) {
		return fmt.Errorf("api.default_window must be one of %v, got %q", validWindows, c.API.DefaultWindow)
	}
	if c.Images.MaxConcurrent <= 0 {
		return fmt.Errorf("images.max_concurrent must be greater than 0")
	}
	return nil
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

// expandPath expands ~ to home directory and converts to absolute path
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if len(path) >= 2 && path[:2] == "~/" {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}

	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}

	return path
}

// expandPaths expands all paths in the config
func expandPaths(cfg *Config) {
	cfg.History.Path = expandPath(cfg.History.Path)
	cfg.History.DBPath = expandPath(cfg.History.DBPath)
	cfg.Log.File = expandPath(cfg.Log.File)
}

func Save(config *Config, path string) error {
	v := viper.New()

	// Durations as strings for TOML readability
	for key, value := range flatten(config) {
		if d, ok := value.(time.Duration); ok {
			value = d.String()
		}
		v.Set(key, value)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return v.WriteConfigAs(path)
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}

// Default returns a copy of the built-in configuration.
func Default() *Config {
	cfg := defaultConfig()
	expandPaths(cfg)
	return cfg
}
