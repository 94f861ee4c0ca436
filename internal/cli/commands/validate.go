package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"surveybot/internal/questionnaire"
)

func ValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Check a questionnaire document and print its question graph",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				path = cfg.Questionnaire.Path
			}

			survey, err := questionnaire.Load(path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d questions, entry %s\n", path, survey.Len(), survey.Entry)
			for _, q := range survey.Questions {
				fmt.Fprintf(out, "  %-16s %-14s -> %s\n", q.ID, q.Type, q.Next)
			}
			return nil
		},
	}
}
