// Package telegram connects the chat engine to the Telegram Bot API by
// long polling or by webhook.
//
// Updates are dispatched per user: one user's updates are handled one at a
// time in arrival order, different users concurrently.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/JonMunkholm/partbot/internal/bot"
	"github.com/JonMunkholm/partbot/internal/config"
	"github.com/JonMunkholm/partbot/internal/logging"
)

// API is the subset of *tgbotapi.BotAPI the client uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// Handler is the chat engine. *bot.Bot implements it.
type Handler interface {
	Handle(ctx context.Context, ev bot.Event) []bot.Reply
}

// Options tune a Client.
type Options struct {
	PollTimeout   int   // seconds
	MaxPhotoBytes int64 // larger photos are refused
	HTTPClient    *http.Client
}

// Client receives updates and delivers the engine's replies.
type Client struct {
	api      API
	handler  Handler
	opts     Options
	dispatch *Dispatcher
}

// New authenticates with the bot token. Jobs run under ctx, so cancelling
// it abandons queued updates.
func New(ctx context.Context, cfg config.TelegramConfig, h Handler) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	api.Debug = cfg.Debug
	slog.Info("authorized on telegram", "bot", api.Self.UserName)

	return NewWithAPI(ctx, api, h, Options{
		PollTimeout:   cfg.PollTimeout,
		MaxPhotoBytes: cfg.MaxPhotoBytes,
	}), nil
}

// NewWithAPI builds a client over any API implementation.
func NewWithAPI(ctx context.Context, api API, h Handler, opts Options) *Client {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = 30
	}
	if opts.MaxPhotoBytes <= 0 {
		opts.MaxPhotoBytes = 10 << 20
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	c := &Client{api: api, handler: h, opts: opts}
	c.dispatch = NewDispatcher(ctx, c.process)
	return c
}

// Dispatch queues an update for its user.
func (c *Client) Dispatch(u Update) {
	userID, _, ok := u.sender()
	if !ok {
		slog.Debug("ignoring update", "update_id", u.UpdateID)
		return
	}
	c.dispatch.Submit(Job{Key: userID, Update: u})
}

// Pending returns the number of updates queued behind a busy user.
func (c *Client) Pending() int {
	return c.dispatch.Pending()
}

// Wait blocks until queued updates are handled or ctx is done.
func (c *Client) Wait(ctx context.Context) error {
	return c.dispatch.Wait(ctx)
}

func (c *Client) process(ctx context.Context, job Job) {
	u := job.Update
	userID, chatID, _ := u.sender()
	logger := logging.WithFields(ctx, "user_id", userID, "update_id", u.UpdateID)

	var (
		ev        bot.Event
		messageID int
	)
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		if _, err := c.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
			logger.Warn("answer callback failed", "error", err)
		}
		ev = bot.Event{UserID: userID, Kind: bot.EventButton, Text: cq.Data}
		messageID = cq.Message.MessageID

	case u.WebAppData != "":
		ev = bot.Event{UserID: userID, Kind: bot.EventWebApp, Text: u.WebAppData}

	case len(u.Message.Photo) > 0:
		photo, err := c.downloadPhoto(ctx, u.Message.Photo)
		if err != nil {
			logger.Warn("photo download failed", "error", err)
		}
		ev = bot.Event{UserID: userID, Kind: bot.EventPhoto, Photo: photo}

	case u.Message.Text != "":
		ev = bot.ParseText(userID, u.Message.Text)

	default:
		return
	}

	start := time.Now()
	replies := c.handler.Handle(ctx, ev)
	logger.Debug("update handled", "kind", ev.Kind, "replies", len(replies),
		"duration_ms", time.Since(start).Milliseconds())

	c.deliver(ctx, chatID, messageID, replies)
}

// deliver sends replies in order. A reply whose Markdown the server
// rejects is resent as plain text.
func (c *Client) deliver(ctx context.Context, chatID int64, messageID int, replies []bot.Reply) {
	for _, r := range replies {
		msg := render(chatID, messageID, r)
		_, err := c.api.Send(msg)
		if err != nil && r.Markdown && isParseError(err) {
			r.Markdown = false
			_, err = c.api.Send(render(chatID, messageID, r))
		}
		if err != nil {
			logging.FromContext(ctx).Error("send reply failed", "chat_id", chatID, "error", err)
		}
	}
}

func isParseError(err error) bool {
	return strings.Contains(err.Error(), "can't parse entities")
}

var errPhotoTooLarge = errors.New("photo exceeds size limit")

// downloadPhoto fetches the largest rendition within the size limit.
// Telegram lists renditions smallest first.
func (c *Client) downloadPhoto(ctx context.Context, sizes []tgbotapi.PhotoSize) ([]byte, error) {
	pick := sizes[0]
	for _, s := range sizes {
		if int64(s.FileSize) <= c.opts.MaxPhotoBytes {
			pick = s
		}
	}
	if int64(pick.FileSize) > c.opts.MaxPhotoBytes {
		return nil, errPhotoTooLarge
	}

	url, err := c.api.GetFileDirectURL(pick.FileID)
	if err != nil {
		return nil, fmt.Errorf("resolve file: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxPhotoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	if int64(len(b)) > c.opts.MaxPhotoBytes {
		return nil, errPhotoTooLarge
	}
	return b, nil
}
