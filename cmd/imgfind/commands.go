package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pders01/imgfind/internal/config"
	"github.com/pders01/imgfind/internal/imagecache"
	"github.com/pders01/imgfind/internal/imgur"
	"github.com/pders01/imgfind/internal/media"
	"github.com/pders01/imgfind/internal/validation"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("imgfind %s\n", Version)
		fmt.Println("Gallery search client")
		fmt.Println("github.com/pders01/imgfind")
	},
}

var searchCmd = &cobra.Command{
	Use:   "search TERM",
	Short: "Print search results without starting the interface",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		pages, _ := cmd.Flags().GetInt("pages")
		record, _ := cmd.Flags().GetBool("record")
		sortFlag, _ := cmd.Flags().GetString("sort")
		windowFlag, _ := cmd.Flags().GetString("window")
		sort, window := e.searchOptions(sortFlag, windowFlag)

		results, err := runSearch(imgur.NewFromConfig(e.cfg.API), e.history, searchRequest{
			Term:   args[0],
			Sort:   sort,
			Window: window,
			Pages:  pages,
			Record: record,
		})
		if errors.Is(err, errNoResults) {
			fmt.Fprintf(cmd.OutOrStdout(), "No results for '%s'\n", args[0])
			return nil
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for i, img := range results {
			title := img.Title
			if title == "" {
				title = img.ID
			}
			fmt.Fprintf(out, "%3d. %s\n     %s\n", i+1, title, img.Link)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or edit the search history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return historyListCmd.RunE(cmd, args)
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered searches, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		entries := e.history.All()
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "History is empty")
			return nil
		}
		for _, entry := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%-40s %s\n", entry.Term, entry.Time().Format(time.DateTime))
		}
		return nil
	},
}

var historyRemoveCmd = &cobra.Command{
	Use:     "rm TERM",
	Aliases: []string{"remove"},
	Short:   "Forget one search term",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		if err := e.history.Remove(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed '%s'\n", args[0])
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every search term",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		n := e.history.Len()
		if err := e.history.Clear(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d entries\n", n)
		return nil
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch URL",
	Short: "Download one image to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		dest, err := validation.ValidateOutputPath(output)
		if err != nil {
			return fmt.Errorf("invalid output path: %w", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fetcher := imagecache.NewHTTPFetcherFromConfig(cfg.Images, cfg.API.UserAgent)

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Images.HTTPTimeout)
		defer cancel()
		data, err := fetcher.Fetch(ctx, args[0])
		if err != nil {
			return err
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", dest, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %d bytes to %s\n", len(data), dest)
		return nil
	},
}

var openCmd = &cobra.Command{
	Use:   "open TERM INDEX",
	Short: "Search and open one result in the image viewer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil || index < 1 {
			return fmt.Errorf("index must be a positive number, got %q", args[1])
		}

		e, err := openEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		pages, _ := cmd.Flags().GetInt("pages")
		sort, window := e.searchOptions("", "")
		results, err := runSearch(imgur.NewFromConfig(e.cfg.API), e.history, searchRequest{
			Term:   args[0],
			Sort:   sort,
			Window: window,
			Pages:  pages,
			Record: true,
		})
		if err != nil {
			return err
		}
		if index > len(results) {
			return fmt.Errorf("only %d results for '%s'", len(results), args[0])
		}

		img := results[index-1]
		if err := media.NewLauncher(e.cfg.Media).Open(img.Link); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Opening %s\n", img.Link)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configGenCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the default configuration",
	Args:  cobra.NoArgs,
	Run: func(_ *cobra.Command, _ []string) {
		home, _ := os.UserHomeDir()
		configFile := filepath.Join(home, ".config", "imgfind", "config.toml")

		if err := config.GenerateDefaultConfig(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Generated default configuration at: %s\n", configFile)
	},
}

func init() {
	searchCmd.Flags().Int("pages", 1, "Number of pages to fetch")
	searchCmd.Flags().String("sort", "", "Sort: top, viral or time")
	searchCmd.Flags().String("window", "", "Window: all, day, week, month or year")
	searchCmd.Flags().Bool("record", false, "Remember the term in the search history")

	historyCmd.AddCommand(historyListCmd, historyRemoveCmd, historyClearCmd)

	fetchCmd.Flags().StringP("output", "o", "", "File to write the image to")
	_ = fetchCmd.MarkFlagRequired("output")

	openCmd.Flags().Int("pages", 1, "Number of pages to search for INDEX")

	configCmd.AddCommand(configGenCmd)
}
