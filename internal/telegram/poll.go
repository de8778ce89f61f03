package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// pollBackoff is the pause after a failed getUpdates call.
const pollBackoff = 3 * time.Second

// Poll long-polls getUpdates until ctx is cancelled. A poll in flight when
// ctx ends finishes before Poll returns.
func (c *Client) Poll(ctx context.Context) error {
	if _, err := c.api.MakeRequest("deleteWebhook", tgbotapi.Params{}); err != nil {
		slog.Warn("delete webhook failed", "error", err)
	}
	slog.Info("telegram polling started", "timeout_s", c.opts.PollTimeout)

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			slog.Info("telegram polling stopped")
			return nil
		}

		resp, err := c.api.MakeRequest("getUpdates", tgbotapi.Params{
			"offset":  strconv.Itoa(offset),
			"timeout": strconv.Itoa(c.opts.PollTimeout),
		})
		if err != nil {
			slog.Warn("getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(pollBackoff):
			}
			continue
		}

		updates, err := DecodeUpdates(resp.Result)
		if err != nil {
			slog.Error("decode updates failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(pollBackoff):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			c.Dispatch(u)
		}
	}
}
