package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var saveFlags inputFlags

var inputsCmd = &cobra.Command{
	Use:   "inputs",
	Short: "Show or change the saved simulation input",
}

var inputsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved input, or the defaults when none is saved",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := app.service.CurrentInput(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(input)
	},
}

var inputsSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Update fields of the saved input",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		input, err := app.service.CurrentInput(ctx)
		if err != nil {
			return err
		}
		input = saveFlags.apply(cmd, input)
		if err := app.service.Inputs().SaveInput(ctx, input); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "input saved")
		return nil
	},
}

var inputsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the saved input so the defaults apply again",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.service.Inputs().ResetInput(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "input reset to defaults")
		return nil
	},
}

func init() {
	saveFlags.register(inputsSaveCmd)
	inputsCmd.AddCommand(inputsShowCmd, inputsSaveCmd, inputsResetCmd)
}
