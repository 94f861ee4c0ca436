// Package cli implements surveyctl, the operator command line.
package cli

import (
	"github.com/spf13/cobra"

	"surveybot/internal/cli/commands"
)

func Execute() error {
	return NewRoot().Execute()
}

func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:           "surveyctl",
		Short:         "Operator tools for the questionnaire bot",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	commands.AddConfigFlag(root)
	root.AddCommand(
		commands.ValidateCmd(),
		commands.SetWebhookCmd(),
		commands.DeleteWebhookCmd(),
		commands.WebhookInfoCmd(),
		commands.InitSheetCmd(),
		commands.CheckSheetCmd(),
	)
	return root
}
