package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"impactanalyzer/core/internal/db"
	"impactanalyzer/core/internal/facts"
)

var (
	ingestDB      string
	ingestReplace bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <facts.json>...",
	Short: "Stage dependency facts from one or more documents into the SQLite fact store",
	Long: "Decodes every entry of each fact document and stores the resulting (source, relation, target) " +
		"triples. The engine reads the store alongside the JSON fact file when --facts-db is set.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ingestDB
		if path == "" {
			path = appConfig.Facts.DBPath
		}
		if path == "" {
			return fmt.Errorf("no fact store given (use --db or --facts-db)")
		}

		store, err := db.OpenDB(path)
		if err != nil {
			return err
		}
		defer store.Close()

		if ingestReplace {
			if err := store.ClearFacts(); err != nil {
				return fmt.Errorf("clearing staged facts: %w", err)
			}
		}

		for _, src := range args {
			list, repo, skipped, err := collectFacts(src, appConfig.Facts.Relations)
			if err != nil {
				return err
			}
			inserted, err := store.InsertFacts(list)
			if err != nil {
				return err
			}
			if repo != "" {
				if err := store.SetRepo(repo); err != nil {
					return fmt.Errorf("recording repo: %w", err)
				}
			}
			fmt.Printf("[ingest] %s: %d facts, %d new, %d malformed entries skipped\n", src, len(list), inserted, skipped)
		}

		counts, err := store.RelationCounts()
		if err != nil {
			return err
		}
		fmt.Printf("[ingest] %s now holds:\n", path)
		for _, rc := range counts {
			relation := rc.Relation
			if relation == "" {
				relation = "(none)"
			}
			fmt.Printf("  %-20s %d\n", relation, rc.Count)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDB, "db", "", "Fact store path (defaults to --facts-db)")
	ingestCmd.Flags().BoolVar(&ingestReplace, "replace", false, "Clear previously staged facts first")
	rootCmd.AddCommand(ingestCmd)
}

// collectFacts decodes a fact document into triples without building a graph.
func collectFacts(path string, relations []string) ([]facts.Fact, string, int, error) {
	doc, err := facts.LoadFile(path)
	if err != nil {
		return nil, "", 0, err
	}
	if len(relations) == 0 {
		relations = facts.DefaultRelations
	}

	var list []facts.Fact
	skipped := 0
	for _, raw := range doc.Entries {
		entry, ok := facts.DecodeEntry(raw, relations)
		if !ok {
			skipped++
			continue
		}
		list = append(list, entry.Facts...)
	}
	return list, doc.Repo, skipped, nil
}
