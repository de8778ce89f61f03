package telegram

import (
	"crypto/subtle"
	"io"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SecretHeader carries the secret token registered with setWebhook.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// maxUpdateBytes caps a webhook request body.
const maxUpdateBytes = 1 << 20

// SetWebhook registers url with Telegram. Updates then arrive through
// WebhookHandler instead of Poll.
func (c *Client) SetWebhook(url, secret string) error {
	params := tgbotapi.Params{"url": url}
	if secret != "" {
		params["secret_token"] = secret
	}
	if _, err := c.api.MakeRequest("setWebhook", params); err != nil {
		return err
	}
	slog.Info("telegram webhook registered", "url", url)
	return nil
}

// WebhookHandler accepts updates pushed by Telegram. The update is queued
// and the request answered at once; replies go out through the Bot API.
func (c *Client) WebhookHandler(secret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if secret != "" {
			got := r.Header.Get(SecretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBytes))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		u, err := DecodeUpdate(body)
		if err != nil {
			slog.Warn("webhook update rejected", "error", err)
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}

		c.Dispatch(u)
		w.WriteHeader(http.StatusOK)
	})
}
