package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"branch-address-scraper/internal/app"
	"branch-address-scraper/internal/config"
	"branch-address-scraper/internal/normalize"
	"branch-address-scraper/internal/observability"
	"branch-address-scraper/internal/scraper"
	"branch-address-scraper/internal/server"
)

type rootOptions struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *observability.Logger
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "branch-scraper",
		Short: "Find branch addresses on a web page and geocode them",
		Long: `Finds the postal address printed next to each named branch on an
arbitrary web page, parses it into street, city, state and ZIP, and
geocodes it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config (defaults are used when empty)")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(newScrapeCmd(opts))
	cmd.AddCommand(newMatchCmd(opts))
	cmd.AddCommand(newServeCmd(opts))

	return cmd
}

func (o *rootOptions) load() error {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if o.verbose {
		cfg.Observability.LogLevel = "debug"
	}

	logger, err := observability.NewLogger(cfg.Observability.LogPath, cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	o.cfg = cfg
	o.logger = logger
	return nil
}

func newScrapeCmd(opts *rootOptions) *cobra.Command {
	var (
		flagURL      string
		flagBranches string
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch a page and resolve the address of each branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(flagURL) == "" {
				return fmt.Errorf("--url is required")
			}
			names := normalize.SplitNames(flagBranches)
			if len(names) == 0 {
				return fmt.Errorf("--branches must name at least one branch")
			}

			ctx, cancel := app.GracefulShutdown(cmd.Context(), opts.logger)
			defer cancel()

			deps, err := app.Build(opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer deps.Close()

			records, err := deps.Orchestrator.Scrape(ctx, flagURL, names)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{"branches": records})
		},
	}

	cmd.Flags().StringVar(&flagURL, "url", "", "Page listing the branches (required)")
	cmd.Flags().StringVar(&flagBranches, "branches", "", "Comma-separated branch names (required)")

	return cmd
}

func newMatchCmd(opts *rootOptions) *cobra.Command {
	var (
		flagFile   string
		flagBranch []string
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match branch names against a saved HTML file (no fetch, no geocoding)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(flagBranch) == 0 {
				return fmt.Errorf("--branch is required")
			}

			var r io.Reader
			if flagFile == "" || flagFile == "-" {
				r = cmd.InOrStdin()
			} else {
				f, err := os.Open(flagFile)
				if err != nil {
					return fmt.Errorf("opening %s: %w", flagFile, err)
				}
				defer f.Close() //nolint:errcheck
				r = f
			}

			page, err := scraper.NewPage(r)
			if err != nil {
				return fmt.Errorf("parsing HTML: %w", err)
			}

			m := scraper.NewMatcher(opts.logger)
			results := make([]scraper.MatchResult, 0, len(flagBranch))
			for _, name := range flagBranch {
				results = append(results, m.Match(page, name))
			}

			if len(results) == 1 {
				return writeJSON(cmd.OutOrStdout(), results[0])
			}
			return writeJSON(cmd.OutOrStdout(), results)
		},
	}

	cmd.Flags().StringVar(&flagFile, "file", "-", "HTML file to read, '-' for stdin")
	cmd.Flags().StringArrayVar(&flagBranch, "branch", nil, "Branch name to match (repeatable)")

	return cmd
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var flagAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web form and the /scrape JSON endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := opts.cfg.Server.Addr
			if flagAddr != "" {
				addr = flagAddr
			}

			ctx, cancel := app.GracefulShutdown(cmd.Context(), opts.logger)
			defer cancel()

			deps, err := app.Build(opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer deps.Close()

			srv := server.New(deps.Orchestrator, opts.logger, server.WithCORS(opts.cfg.Server.CORSOrigins))
			return srv.ListenAndServe(ctx, addr, opts.cfg.GetShutdownTimeout())
		},
	}

	cmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (overrides server.addr)")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
