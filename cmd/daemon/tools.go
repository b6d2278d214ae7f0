package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/genricoloni/mpcpresence/internal/config"
	"github.com/genricoloni/mpcpresence/internal/store"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <filename>...",
	Short: "Show the display title and search key derived from filenames",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runNormalize,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <search key>",
	Short: "Resolve a thumbnail for a search key (override, cache, IMDb)",
	Long: `Runs the same lookup the daemon runs for a new file and prints the result.
A successful remote lookup is written to the thumbnail cache.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the thumbnail cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached thumbnails",
	Args:  cobra.NoArgs,
	RunE:  runCacheList,
}

var cacheForgetCmd = &cobra.Command{
	Use:   "forget <search key>",
	Short: "Remove a cached thumbnail so the next lookup searches again",
	Args:  cobra.ExactArgs(1),
	RunE:  runCacheForget,
}

func init() {
	rootCmd.AddCommand(normalizeCmd, resolveCmd, cacheCmd)
	cacheCmd.AddCommand(cacheListCmd, cacheForgetCmd)
}

// NormalizeResult is the JSON form of one normalized filename.
type NormalizeResult struct {
	Filename  string `json:"filename"`
	Display   string `json:"display"`
	SearchKey string `json:"search_key"`
}

func runNormalize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(config.WithoutDiscord())
	if err != nil {
		return err
	}

	n := newNormalizer(cfg)
	results := make([]NormalizeResult, 0, len(args))
	for _, name := range args {
		t := n.Normalize(name)
		results = append(results, NormalizeResult{Filename: name, Display: t.Display, SearchKey: t.SearchKey})
	}
	return printNormalized(cmd.OutOrStdout(), results, jsonOutput)
}

func printNormalized(w io.Writer, results []NormalizeResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILENAME\tDISPLAY\tSEARCH KEY")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Filename, r.Display, r.SearchKey)
	}
	return tw.Flush()
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(config.WithoutDiscord())
	if err != nil {
		return err
	}
	logger, err := toolLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	fs := newFs()
	res := newResolver(cfg, logger,
		newOverrides(cfg, fs, logger),
		newThumbnailCache(cfg, fs, logger),
		newTitleLookup(cfg, logger))

	url := res.Resolve(cmd.Context(), args[0])
	if jsonOutput {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"search_key": args[0], "image": url})
	}
	fmt.Fprintln(cmd.OutOrStdout(), url)
	return nil
}

func runCacheList(cmd *cobra.Command, _ []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	return printEntries(cmd.OutOrStdout(), cache.Entries(), jsonOutput)
}

func printEntries(w io.Writer, entries []store.Entry, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEARCH KEY\tIMAGE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\n", e.Key, e.URL)
	}
	return tw.Flush()
}

func runCacheForget(cmd *cobra.Command, args []string) error {
	cache, err := openCache()
	if err != nil {
		return err
	}
	if err := cache.Forget(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Forgot %q\n", args[0])
	return nil
}

func openCache() (*store.ThumbnailCache, error) {
	cfg, err := loadConfig(config.WithoutDiscord())
	if err != nil {
		return nil, err
	}
	logger, err := toolLogger(cfg)
	if err != nil {
		return nil, err
	}
	return newThumbnailCache(cfg, afero.NewOsFs(), logger), nil
}

// toolLogger keeps one-shot commands quiet unless something goes wrong.
func toolLogger(cfg *config.Config) (*zap.Logger, error) {
	c := *cfg
	if c.Log.Level != "debug" {
		c.Log.Level = "warn"
	}
	return newLogger(&c)
}
