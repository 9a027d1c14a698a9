package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pders01/imgfind/internal/imagecache"
	"github.com/pders01/imgfind/internal/imgur"
	"github.com/pders01/imgfind/internal/media"
	"github.com/pders01/imgfind/internal/suggest"
	"github.com/pders01/imgfind/internal/tui"
)

// Version is the version of the application, set at build time
var Version = "dev"

var (
	configPath string
	dbPath     string
	quiet      bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "imgfind",
	Short:         "Search image galleries from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Keep history in this database file (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write debug logs")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Skip startup banner")
	rootCmd.Flags().String("sort", "", "Initial sort: top, viral or time")
	rootCmd.Flags().String("window", "", "Initial window: all, day, week, month or year")

	rootCmd.AddCommand(versionCmd, searchCmd, historyCmd, fetchCmd, openCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, _ []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if !quiet {
		fmt.Fprintln(cmd.OutOrStdout(), tui.Banner(Version))
	}

	suggester, err := suggest.New(e.cfg.History.SuggestEngine)
	if err != nil {
		return err
	}
	if closer, ok := suggester.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	sortFlag, _ := cmd.Flags().GetString("sort")
	windowFlag, _ := cmd.Flags().GetString("window")
	sort, window := e.searchOptions(sortFlag, windowFlag)

	return tui.Run(tui.Deps{
		Config:    e.cfg,
		Client:    imgur.NewFromConfig(e.cfg.API),
		History:   e.history,
		Images:    imagecache.NewHTTPFetcherFromConfig(e.cfg.Images, e.cfg.API.UserAgent),
		Suggester: suggester,
		Opener:    media.NewLauncher(e.cfg.Media),
		Options:   e.optionsStore(),
		Sort:      sort,
		Window:    window,
	})
}
