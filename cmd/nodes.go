package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"impactanalyzer/core/internal/db"
	"impactanalyzer/core/internal/graph"
)

var (
	nodesLimit int
	nodesDeps  bool
)

var nodesCmd = &cobra.Command{
	Use:   "nodes <partial>",
	Short: "Find nodes by case-insensitive partial name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := LoadEngine(cmd.Context(), engineOptions(appConfig))
		if err != nil {
			return err
		}
		g := eng.Graph()

		if nodesDeps {
			node, err := ResolveNode(g, args[0])
			if err != nil {
				return err
			}
			return printNodeDetail(g, node)
		}

		found := g.FindNodes(args[0])
		if len(found) == 0 {
			return fmt.Errorf("no nodes match '%s'", args[0])
		}
		limit := len(found)
		if nodesLimit > 0 {
			limit = min(limit, nodesLimit)
		}
		for _, n := range found[:limit] {
			fmt.Printf("  %-30s deps=%-3d %s\n", truncName(graph.ShortName(n.Name), 30), len(g.Dependencies(n.Name)), n.Name)
		}
		if limit < len(found) {
			fmt.Printf("  ... and %d more\n", len(found)-limit)
		}
		return nil
	},
}

func init() {
	nodesCmd.Flags().IntVar(&nodesLimit, "limit", 50, "Maximum matches to list (0 for all)")
	nodesCmd.Flags().BoolVar(&nodesDeps, "deps", false, "Resolve to a single node and show its direct dependencies")
	rootCmd.AddCommand(nodesCmd)
}

func printNodeDetail(g *graph.Graph, node *graph.Node) error {
	fmt.Printf("\n  %s\n", node.Name)
	fmt.Println("  ────────────────────────────────────────")
	deps := g.Dependencies(node.Name)
	if len(deps) == 0 {
		fmt.Println("  (no dependencies)")
	}
	for _, d := range deps {
		marker := " "
		if meta, ok := g.EdgeMetadata(node.Name, d.Name); ok && meta.Critical {
			marker = "!"
		}
		fmt.Printf("  %s -> %s\n", marker, d.Name)
	}

	if appConfig.Facts.DBPath == "" {
		fmt.Println()
		return nil
	}
	store, err := db.OpenDB(appConfig.Facts.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	rows, err := store.FactsForNode(node.Name)
	if err != nil {
		return fmt.Errorf("reading staged facts: %w", err)
	}
	if len(rows) > 0 {
		fmt.Printf("\n  Staged facts (%d):\n", len(rows))
		for _, r := range rows {
			fmt.Printf("    %s -[%s]-> %s\n", r.Source, r.Relation, r.Target)
		}
	}
	fmt.Println()
	return nil
}
