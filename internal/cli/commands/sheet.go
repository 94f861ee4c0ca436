package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"surveybot/internal/config"
	"surveybot/internal/model"
	"surveybot/internal/questionnaire"
)

const sheetTimeout = 30 * time.Second

func sheetFromConfig(cmd *cobra.Command) (SheetAPI, *config.Config, context.CancelFunc, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.Sheets.SpreadsheetID == "" {
		return nil, nil, nil, fmt.Errorf("sheets.spreadsheetId is required (GOOGLE_SHEETS_ID)")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), sheetTimeout)
	api, err := newSheetAPI(ctx, cfg.Sheets)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	cmd.SetContext(ctx)
	return api, cfg, cancel, nil
}

func InitSheetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-sheet",
		Short: "Write the header row of the export spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, cfg, cancel, err := sheetFromConfig(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			messages := model.DefaultMessages()
			if survey, err := questionnaire.Load(cfg.Questionnaire.Path); err == nil {
				messages = survey.Messages
			}
			if err := api.InitializeHeader(cmd.Context(), messages.SheetHeaderLabel, messages.SheetHeaderText); err != nil {
				return fmt.Errorf("initialize header: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Header written: %q | %q\n", messages.SheetHeaderLabel, messages.SheetHeaderText)
			return nil
		},
	}
}

func CheckSheetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-sheet",
		Short: "Verify the spreadsheet is reachable with the configured credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, _, cancel, err := sheetFromConfig(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			title, err := api.CheckConnection(cmd.Context())
			if err != nil {
				return fmt.Errorf("spreadsheet unreachable: %w", err)
			}
			rows, err := api.LastRow(cmd.Context())
			if err != nil {
				return fmt.Errorf("read rows: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Spreadsheet %q reachable, %d rows used\n", title, rows)
			return nil
		},
	}
}
