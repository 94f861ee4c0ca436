package commands

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"surveybot/internal/config"
	"surveybot/internal/sheets"
)

const configFlag = "config"

// TelegramAPI is the part of *tgbotapi.BotAPI the webhook commands use
type TelegramAPI interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetWebhookInfo() (tgbotapi.WebhookInfo, error)
}

// SheetAPI is the part of the Sheets client the sheet commands use
type SheetAPI interface {
	InitializeHeader(ctx context.Context, label, text string) error
	CheckConnection(ctx context.Context) (string, error)
	LastRow(ctx context.Context) (int, error)
}

var newTelegramAPI = func(token string) (TelegramAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return api, nil
}

var newSheetAPI = func(ctx context.Context, cfg config.SheetsConfig) (SheetAPI, error) {
	c, err := sheets.New(ctx, cfg.SpreadsheetID, cfg.Credentials, cfg.Range)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// AddConfigFlag registers the --config flag every command reads
func AddConfigFlag(root *cobra.Command) {
	root.PersistentFlags().String(configFlag, "", "directory containing config.yaml")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, _ := cmd.Flags().GetString(configFlag)
	return config.LoadUnvalidated(dir)
}
