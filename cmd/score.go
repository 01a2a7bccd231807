package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/verdict/pkg/cli/display"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score previously collected validation results without sending requests",
	Long: `Read a document with finding_id and any of repro_result,
negative_control_result and cross_identity_result, and print the
confidence score and recommendation.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		inputs, err := loadInputs(cmd, path)
		if err != nil {
			return err
		}

		scorer, err := newScorer()
		if err != nil {
			return err
		}

		result := scorer.CalculateConfidence(inputs)
		tel.RecordConfidence(result.OverallScore, result.Recommendation)
		log.LogValidationOutcome(cmd.Context(), result.FindingID, string(result.Recommendation), result.OverallScore)

		return render(cmd, result, func(w io.Writer) { display.PrintConfidence(w, result) })
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("file", "f", "", "validation inputs document (- for stdin)")
}
