package commands

import (
	"fmt"
	"net/url"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
)

func telegramFromConfig(cmd *cobra.Command) (TelegramAPI, string, string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", "", err
	}
	if cfg.Telegram.Token == "" {
		return nil, "", "", fmt.Errorf("telegram.token is required (TELEGRAM_TOKEN)")
	}
	api, err := newTelegramAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, "", "", fmt.Errorf("connect to telegram: %w", err)
	}
	return api, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret, nil
}

func SetWebhookCmd() *cobra.Command {
	var (
		hookURL     string
		dropPending bool
	)
	cmd := &cobra.Command{
		Use:   "set-webhook",
		Short: "Register the webhook URL and secret token with Telegram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, configured, secret, err := telegramFromConfig(cmd)
			if err != nil {
				return err
			}
			if hookURL == "" {
				hookURL = configured
			}
			u, err := url.Parse(hookURL)
			if err != nil || u.Scheme != "https" || u.Host == "" {
				return fmt.Errorf("webhook URL must be an https URL, got %q", hookURL)
			}

			params := tgbotapi.Params{"url": u.String()}
			params.AddNonEmpty("secret_token", secret)
			params.AddBool("drop_pending_updates", dropPending)
			if _, err := api.MakeRequest("setWebhook", params); err != nil {
				return fmt.Errorf("set webhook: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Webhook set to", u.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&hookURL, "url", "", "webhook URL (defaults to telegram.webhookUrl)")
	cmd.Flags().BoolVar(&dropPending, "drop-pending", false, "drop updates queued while no webhook was set")
	return cmd
}

func DeleteWebhookCmd() *cobra.Command {
	var dropPending bool
	cmd := &cobra.Command{
		Use:   "delete-webhook",
		Short: "Remove the webhook so the bot can use long polling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, _, _, err := telegramFromConfig(cmd)
			if err != nil {
				return err
			}
			if _, err := api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending}); err != nil {
				return fmt.Errorf("delete webhook: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Webhook deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&dropPending, "drop-pending", false, "drop queued updates")
	return cmd
}

func WebhookInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "webhook-info",
		Short: "Show the webhook Telegram currently delivers to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, _, _, err := telegramFromConfig(cmd)
			if err != nil {
				return err
			}
			info, err := api.GetWebhookInfo()
			if err != nil {
				return fmt.Errorf("get webhook info: %w", err)
			}
			out := cmd.OutOrStdout()
			if info.URL == "" {
				fmt.Fprintln(out, "No webhook set (long polling)")
				return nil
			}
			fmt.Fprintf(out, "URL: %s\nPending updates: %d\n", info.URL, info.PendingUpdateCount)
			if info.LastErrorMessage != "" {
				fmt.Fprintf(out, "Last error: %s\n", info.LastErrorMessage)
			}
			return nil
		},
	}
}
