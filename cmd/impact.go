package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"impactanalyzer/core/internal/impact"
)

var (
	impactTestPlan string
	impactRepo     string
	impactCompact  bool
)

var impactCmd = &cobra.Command{
	Use:   "impact <seed>...",
	Short: "Print the modules impacted by changing each seed",
	Long: "Matches each seed case-insensitively against node names and prints every module the " +
		"matches transitively depend on, one cluster per seed, as graph JSON.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := LoadEngine(cmd.Context(), engineOptions(appConfig))
		if err != nil {
			return err
		}

		resp, err := eng.Impact(cmd.Context(), eng.WithDocumentRepo(impactQuery(cmd, args)))
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		if !impactCompact {
			enc.SetIndent("", "  ")
		}
		return enc.Encode(resp)
	},
}

func init() {
	impactCmd.Flags().StringVar(&impactTestPlan, "test-plan", "", "Opaque test plan text to attach to the response")
	impactCmd.Flags().StringVar(&impactRepo, "repo", "", "Repository label to attach (defaults to the fact document's repo)")
	impactCmd.Flags().BoolVar(&impactCompact, "compact", false, "Print JSON on one line")
	rootCmd.AddCommand(impactCmd)
}

// impactQuery only attaches the optional blocks when their flag was given,
// so `--repo ""` yields a null repo while omitting the flag leaves Repo nil
// for the engine to fill from the fact document.
func impactQuery(cmd *cobra.Command, seeds []string) impact.Query {
	q := impact.Query{Seeds: seeds}
	if cmd.Flags().Changed("test-plan") {
		v := impactTestPlan
		q.TestPlan = &v
	}
	if cmd.Flags().Changed("repo") {
		v := impactRepo
		q.Repo = &v
	}
	return q
}
