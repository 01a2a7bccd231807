package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/verdict/pkg/cli/display"
)

var crossIdentityCmd = &cobra.Command{
	Use:     "cross-identity",
	Aliases: []string{"cross"},
	Short:   "Send the finding's request as each identity and compare access with expectations",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		req, err := loadRequest(cmd, path)
		if err != nil {
			return err
		}
		if len(req.Identities) == 0 {
			return fmt.Errorf("no identities configured in %s", path)
		}

		log.Infow("Running cross-identity test", "finding_id", req.Finding.FindingID, "identities", len(req.Identities))

		result, err := newControlRunner(newExecutor()).RunCrossIdentity(cmd.Context(), req.Finding, req.Identities)
		if err != nil {
			return err
		}
		return render(cmd, result, func(w io.Writer) { display.PrintCrossIdentity(w, result) })
	},
}

func init() {
	rootCmd.AddCommand(crossIdentityCmd)

	crossIdentityCmd.Flags().StringP("file", "f", "", "request document with identities (- for stdin)")
}
