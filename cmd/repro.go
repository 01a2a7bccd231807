package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/verdict/pkg/cli/display"
)

var reproCmd = &cobra.Command{
	Use:   "repro",
	Short: "Replay a finding and measure how consistently it reproduces",
	Long: `Replay the finding's request sequentially and check every response
against the finding's expected response.

The attempt count comes from --count, then the document's repro_count,
then validation.default_repro_count.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		req, err := loadRequest(cmd, path)
		if err != nil {
			return err
		}

		count := cfg.Validation.DefaultReproCount
		if cmd.Flags().Changed("count") {
			count, _ = cmd.Flags().GetInt("count")
		} else if req.ReproCount != nil {
			count = *req.ReproCount
		}

		log.Infow("Starting reproduction", "finding_id", req.Finding.FindingID, "count", count)

		result, err := newReproRunner(newExecutor()).RunReproN(cmd.Context(), req.Finding, count)
		if result == nil {
			return err
		}
		if renderErr := render(cmd, result, func(w io.Writer) { display.PrintRepro(w, result) }); renderErr != nil {
			return renderErr
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(reproCmd)

	reproCmd.Flags().StringP("file", "f", "", "finding or request document (- for stdin)")
	reproCmd.Flags().IntP("count", "n", 3, "number of attempts")
}
