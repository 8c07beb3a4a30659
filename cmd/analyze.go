package cmd

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"impactanalyzer/core/internal/engine"
	"impactanalyzer/core/internal/graph"
)

var (
	analyzeJSON         bool
	analyzeNamespace    string
	analyzeTopN         int
	analyzeHubThreshold int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze graph structure: topology, criticality, bridges, health score",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := LoadEngine(cmd.Context(), engineOptions(appConfig))
		if err != nil {
			return err
		}

		config := &graph.AnalyzerConfig{
			HubThreshold: analyzeHubThreshold,
			TopN:         analyzeTopN,
		}
		report := eng.Analyze(analyzeNamespace, config)

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Stats    engine.Stats          `json:"stats"`
				Analysis *graph.AnalysisReport `json:"analysis"`
			}{eng.Stats(), report})
		}

		printHumanReadable(report, eng.Stats())
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().StringVar(&analyzeNamespace, "namespace", "", "Scope analysis to one top-level namespace")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top-n", 10, "Number of top items to show per section")
	analyzeCmd.Flags().IntVar(&analyzeHubThreshold, "hub-threshold", 5, "Minimum in-degree to consider a node a hub")
	rootCmd.AddCommand(analyzeCmd)
}

func printHumanReadable(report *graph.AnalysisReport, stats engine.Stats) {
	// Health bar
	barLen := min(int(report.HealthScore*20), 20)
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Printf("\n  Graph Health: %.0f%%  [%s]\n", report.HealthScore*100, bar)
	fmt.Printf("  breakdown: connectivity=%.2f components=%.2f coupling=%.2f fragility=%.2f\n\n",
		report.HealthBreakdown.Connectivity,
		report.HealthBreakdown.Components,
		report.HealthBreakdown.Coupling,
		report.HealthBreakdown.Fragility)

	if stats.Repo != "" {
		fmt.Printf("  Repo: %s  (generation %d)\n\n", stats.Repo, stats.Generation)
	}

	// Topology
	t := report.Topology
	fmt.Println("  TOPOLOGY")
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Nodes: %d  Edges: %d  Components: %d\n", t.TotalNodes, t.TotalEdges, t.NumComponents)
	fmt.Printf("  Largest component: %d  Smallest: %d\n", t.LargestComponent, t.SmallestComponent)
	fmt.Printf("  Leaves: %d  Roots: %d  Self-loops: %d\n", t.LeafCount, t.RootCount, t.SelfLoops)

	if t.OrphanCount > 0 {
		fmt.Printf("  Orphans: %d nodes with only self-dependencies\n", t.OrphanCount)
		limit := min(len(t.OrphanNames), 5)
		for _, name := range t.OrphanNames[:limit] {
			fmt.Printf("    - %s\n", truncName(name, 60))
		}
		if t.OrphanCount > 5 {
			fmt.Printf("    ... and %d more\n", t.OrphanCount-5)
		}
	}

	// In-degree distribution
	fmt.Println("\n  In-degree distribution:")
	for _, b := range t.InDegreeHistogram {
		if b.Count > 0 {
			barWidth := max(int(math.Log2(float64(b.Count)))+2, 1)
			fmt.Printf("    %5s: %4d  %s\n", b.Label, b.Count, strings.Repeat("=", barWidth))
		}
	}

	// Hubs
	if len(t.Hubs) > 0 {
		fmt.Println("\n  Top hubs (in-degree >= threshold):")
		for _, hub := range t.Hubs {
			fmt.Printf("    %-30s in=%d out=%d  %s\n",
				truncName(hub.Label, 30), hub.InDegree, hub.OutDegree, truncName(hub.Name, 50))
		}
	}

	// Criticality
	c := stats.Criticality
	fmt.Println("\n  CRITICALITY")
	fmt.Println("  ────────────────────────────────────────")
	fmt.Printf("  Critical edges: %d of %d  (in-degree rule: %d, cross-package rule: %d)\n",
		c.Critical, c.Edges, c.ByInDegree, c.ByCrossPackage)
	if stats.Build.Skipped > 0 {
		fmt.Printf("  Skipped fact entries: %d of %d\n", stats.Build.Skipped, stats.Build.Entries)
	}

	// Bridges
	br := report.Bridges
	if br.APCount > 0 || br.BridgeCount > 0 || len(br.FragileConnections) > 0 {
		fmt.Println("\n  STRUCTURAL FRAGILITY")
		fmt.Println("  ────────────────────────────────────────")
		if br.APCount > 0 {
			fmt.Printf("  %d articulation points (removal disconnects graph):\n", br.APCount)
			limit := min(len(br.ArticulationPoints), 10)
			for _, ap := range br.ArticulationPoints[:limit] {
				fmt.Printf("    %s (neighbors %d)  %s\n",
					truncName(ap.Label, 30), ap.Neighbors, truncName(ap.Name, 50))
			}
		}
		if br.BridgeCount > 0 {
			fmt.Printf("  %d bridge edges (removal disconnects graph):\n", br.BridgeCount)
			limit := min(len(br.BridgeEdges), 10)
			for _, be := range br.BridgeEdges[:limit] {
				fmt.Printf("    %s -> %s\n", truncName(be.Source, 40), truncName(be.Target, 40))
			}
		}
		if len(br.FragileConnections) > 0 {
			fmt.Printf("  %d fragile inter-namespace connections (<=2 edges):\n", len(br.FragileConnections))
			limit := min(len(br.FragileConnections), 10)
			for _, fc := range br.FragileConnections[:limit] {
				s := ""
				if fc.CrossEdges != 1 {
					s = "s"
				}
				fmt.Printf("    %s <-> %s (%d edge%s)\n",
					truncName(fc.NamespaceA, 25), truncName(fc.NamespaceB, 25), fc.CrossEdges, s)
			}
		}
	}

	fmt.Println()
}

func truncName(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Find a safe UTF-8 boundary
	truncated := s[:max]
	for len(truncated) > 0 && truncated[len(truncated)-1]>>6 == 2 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "..."
}
