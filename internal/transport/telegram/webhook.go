package telegram

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"surveybot/internal/logger"
)

// SecretTokenHeader carries the secret set with setWebhook
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookInfoFunc reports the webhook registered with Telegram
type WebhookInfoFunc func() (tgbotapi.WebhookInfo, error)

// WebhookHandler receives updates pushed by Telegram
type WebhookHandler struct {
	handler UpdateHandler
	secret  string
	info    WebhookInfoFunc // Optional
	logger  *logger.Logger
}

// NewWebhookHandler creates the webhook endpoint. An empty secret disables the header check.
func NewWebhookHandler(handler UpdateHandler, secret string, info WebhookInfoFunc, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{handler: handler, secret: secret, info: info, logger: log}
}

// Receive handles POST /telegram/webhook. Telegram retries non-2xx responses, so anything
// except a bad secret or a malformed body is acknowledged with 200.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		got := r.Header.Get(SecretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid secret token"})
			return
		}
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&update); err != nil {
		h.logger.WithError(err).Warn("Malformed webhook update")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed update"})
		return
	}

	h.handler.HandleUpdate(r.Context(), update)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// Status handles GET /telegram/webhook
func (h *WebhookHandler) Status(w http.ResponseWriter, _ *http.Request) {
	if h.info == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "mode": "webhook"})
		return
	}
	info, err := h.info()
	if err != nil {
		h.logger.WithError(err).Warn("Failed to fetch webhook info")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "telegram unavailable"})
		return
	}
	h.logger.Debug("Webhook info", zap.String("url", info.URL), zap.Int("pending", info.PendingUpdateCount))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"mode":               "webhook",
		"url":                info.URL,
		"pendingUpdateCount": info.PendingUpdateCount,
		"lastErrorMessage":   info.LastErrorMessage,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
