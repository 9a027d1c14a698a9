package main

import (
	"fmt"
	"os"

	"github.com/pders01/imgfind/internal/config"
	"github.com/pders01/imgfind/internal/debuglog"
	"github.com/pders01/imgfind/internal/history"
	"github.com/pders01/imgfind/internal/storage"
	"github.com/pders01/imgfind/internal/tui"
)

// env is everything a command needs after flags are parsed.
type env struct {
	cfg     *config.Config
	history *history.Store
	// db is set only for the bolt history backend.
	db *storage.Store
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.History.Backend = "bolt"
		cfg.History.DBPath = dbPath
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

func openEnv() (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if err := debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	tui.ApplyColors(cfg.UI.Colors)

	e := &env{cfg: cfg}

	var backend history.Backend
	switch cfg.History.Backend {
	case "bolt":
		db, err := storage.NewStore(cfg.History.DBPath, cfg.History.DBTimeout)
		if err != nil {
			return nil, err
		}
		e.db = db
		backend = db
	default:
		backend = history.NewFileBackend(cfg.History.Path)
	}

	e.history = history.New(backend,
		history.WithMaxEntries(cfg.History.MaxEntries),
		history.WithErrorHandler(func(err error) {
			debuglog.Warnf("%v", err)
		}),
	)
	return e, nil
}

// searchOptions returns the sort and window to start with: flags first,
// then what the user last picked, then the configured defaults.
func (e *env) searchOptions(sortFlag, windowFlag string) (string, string) {
	sort, window := e.cfg.API.DefaultSort, e.cfg.API.DefaultWindow
	if e.db != nil {
		saved, ok, err := e.db.LoadSearchOptions()
		if err != nil {
			debuglog.Warnf("loading search options: %v", err)
		} else if ok {
			if saved.Sort != "" {
				sort = saved.Sort
			}
			if saved.Window != "" {
				window = saved.Window
			}
		}
	}
	if sortFlag != "" {
		sort = sortFlag
	}
	if windowFlag != "" {
		window = windowFlag
	}
	return sort, window
}

// optionsStore is nil unless the history lives in the database.
func (e *env) optionsStore() tui.OptionsStore {
	if e.db == nil {
		return nil
	}
	return e.db
}

func (e *env) Close() {
	if e.db != nil {
		if err := e.db.Close(); err != nil {
			debuglog.Warnf("closing database: %v", err)
		}
	}
	_ = debuglog.Close()
}
