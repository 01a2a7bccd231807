package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/verdict/internal/worker"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/cli/display"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run reproduction, controls and scoring for one or many findings",
	Long: `Run the full validation pipeline: reproduction first, then the negative
control and the cross-identity test side by side, then scoring.

With --batch the input is a list of request documents. Findings are
validated concurrently (--workers) and a failure on one finding does not
stop the others.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		batch, _ := cmd.Flags().GetBool("batch")

		pipeline, err := newPipeline()
		if err != nil {
			return err
		}

		if !batch {
			req, err := loadRequest(cmd, path)
			if err != nil {
				return err
			}
			report, err := pipeline.Validate(cmd.Context(), req)
			if err != nil {
				return err
			}
			log.WithRunID(report.RunID).LogValidationOutcome(cmd.Context(), report.FindingID,
				string(report.Confidence.Recommendation), report.Confidence.OverallScore)
			return render(cmd, report, func(w io.Writer) { display.PrintReport(w, report) })
		}

		reqs, err := loadBatch(cmd, path)
		if err != nil {
			return err
		}

		results := worker.NewPool(pipeline, cfg.Worker.Count, log).Run(cmd.Context(), reqs)
		if err := render(cmd, results, func(w io.Writer) { display.PrintBatch(w, results) }); err != nil {
			return err
		}

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d findings could not be validated", failed, len(results))
		}
		return cmd.Context().Err()
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("file", "f", "", "request document, or a list of them with --batch (- for stdin)")
	validateCmd.Flags().Bool("batch", false, "input is a list of request documents")
}
