package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"impactanalyzer/core/internal/config"
	"impactanalyzer/core/internal/engine"
	"impactanalyzer/core/internal/graph"
	"impactanalyzer/core/internal/logging"
)

var (
	cfgFile     string
	factsPath   string
	factsDBPath string
	logLevel    string
	logFormat   string

	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "impactd",
	Short:         "Dependency graph impact analysis",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd, cfg)

		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		slog.SetDefault(logging.New(level, logging.Format(cfg.Log.Format), os.Stderr))

		appConfig = cfg
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "impactd.yaml", "Path to YAML config file (optional)")
	rootCmd.PersistentFlags().StringVar(&factsPath, "facts", "", "Path to dependency-graph.json")
	rootCmd.PersistentFlags().StringVar(&factsDBPath, "facts-db", "", "Path to SQLite fact store written by ingest")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
}

// applyFlagOverrides gives explicitly set flags precedence over file and env.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("facts-db") {
		cfg.Facts.DBPath = factsDBPath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	explicit := ""
	if flags.Changed("facts") {
		explicit = factsPath
	} else if cfg.Facts.Path != config.DefaultFactsFile {
		explicit = cfg.Facts.Path
	}
	if found := DiscoverFacts(explicit); found != "" {
		cfg.Facts.Path = found
	}
}

// DiscoverFacts finds the fact document using priority: env > flag > walk-up.
func DiscoverFacts(explicit string) string {
	return config.Discover(explicit)
}

// engineOptions maps the loaded configuration onto engine options.
func engineOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		FactsPath: cfg.Facts.Path,
		DBPath:    cfg.Facts.DBPath,
		Relations: cfg.Facts.Relations,
		Criticality: graph.CriticalityOptions{
			InDegreeThreshold: cfg.Graph.CriticalInDegreeThreshold,
			MarkCrossPackage:  cfg.Graph.MarkCrossPackageCritical,
		},
		CacheSize: cfg.Server.CacheSize,
		Logger:    slog.Default(),
	}
}

// LoadEngine builds the engine and runs the first rebuild.
func LoadEngine(ctx context.Context, opts engine.Options) (*engine.Engine, error) {
	eng, err := engine.New(opts)
	if err != nil {
		return nil, err
	}
	if _, err := eng.Rebuild(ctx); err != nil {
		return nil, err
	}
	return eng, nil
}

// ResolveNode finds a node by exact name, then by unique partial match.
func ResolveNode(g *graph.Graph, reference string) (*graph.Node, error) {
	// 1. Exact match
	if node, ok := g.GetNode(reference); ok {
		return node, nil
	}

	// 2. Partial match, case-insensitive
	matches := g.FindNodes(reference)
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("node not found: %s", reference)
	case 1:
		return matches[0], nil
	}

	limit := min(len(matches), 10)
	lines := make([]string, limit)
	for i, m := range matches[:limit] {
		lines[i] = fmt.Sprintf("  %s", m.Name)
	}
	return nil, fmt.Errorf("ambiguous reference '%s'. %d matches:\n%s\nUse a fully-qualified name instead.",
		reference, len(matches), strings.Join(lines, "\n"))
}
