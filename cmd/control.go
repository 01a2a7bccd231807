package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/verdict/pkg/cli/display"
	"github.com/CodeMonkeyCybersecurity/verdict/pkg/types"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Send a degraded copy of the finding's request and check it is rejected",
	Long: `Run a single negative control against the finding's target.

Control types:
  unauthenticated   - every auth header removed, expects 401 or 403
  invalid_token     - auth headers replaced by well-formed invalid values, expects 401 or 403
  different_user    - auth replaced by the modified_headers of the control
  modified_request  - headers and body overridden, expects a non-2xx response

The control comes from the document's negative_control block, or from --type.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		req, err := loadRequest(cmd, path)
		if err != nil {
			return err
		}

		control := types.NegativeControlConfig{}
		if req.NegativeControl != nil {
			control = *req.NegativeControl
		}
		if cmd.Flags().Changed("type") {
			controlType, _ := cmd.Flags().GetString("type")
			control.ControlType = types.ControlType(controlType)
		}
		if cmd.Flags().Changed("expected-status") {
			status, _ := cmd.Flags().GetInt("expected-status")
			control.ExpectedStatus = &status
		}
		if control.ControlType == "" {
			return fmt.Errorf("no negative control configured: add negative_control to %s or pass --type", path)
		}

		log.Infow("Running negative control", "finding_id", req.Finding.FindingID, "control_type", control.ControlType)

		result, err := newControlRunner(newExecutor()).RunNegativeControl(cmd.Context(), req.Finding, control)
		if err != nil {
			return err
		}
		return render(cmd, result, func(w io.Writer) { display.PrintNegativeControl(w, result) })
	},
}

func init() {
	rootCmd.AddCommand(controlCmd)

	controlCmd.Flags().StringP("file", "f", "", "request document (- for stdin)")
	controlCmd.Flags().StringP("type", "t", "", "control type (unauthenticated, invalid_token, different_user, modified_request)")
	controlCmd.Flags().Int("expected-status", 0, "status the control must return to pass")
}
