package telegram

import (
	"encoding/json"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Update is a Telegram update plus the fields the library does not model.
type Update struct {
	tgbotapi.Update

	// WebAppData is the payload a Web App sent with sendData.
	WebAppData string
}

type webAppEnvelope struct {
	Message *struct {
		WebAppData *struct {
			Data string `json:"data"`
		} `json:"web_app_data"`
	} `json:"message"`
}

// DecodeUpdate parses one update object.
func DecodeUpdate(raw []byte) (Update, error) {
	var u Update
	if err := json.Unmarshal(raw, &u.Update); err != nil {
		return Update{}, fmt.Errorf("decode update: %w", err)
	}
	var env webAppEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Message != nil && env.Message.WebAppData != nil {
		u.WebAppData = env.Message.WebAppData.Data
	}
	return u, nil
}

// DecodeUpdates parses the result array of getUpdates. An update that
// cannot be decoded is returned with only its id set.
func DecodeUpdates(raw json.RawMessage) ([]Update, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	out := make([]Update, 0, len(items))
	for _, item := range items {
		u, err := DecodeUpdate(item)
		if err != nil {
			// Keep the id so the offset still moves past it.
			var id struct {
				UpdateID int `json:"update_id"`
			}
			if json.Unmarshal(item, &id) != nil {
				return nil, err
			}
			u = Update{Update: tgbotapi.Update{UpdateID: id.UpdateID}}
		}
		out = append(out, u)
	}
	return out, nil
}

// sender returns the user behind an update and where to answer, or ok
// false for updates the bot ignores.
func (u Update) sender() (userID string, chatID int64, ok bool) {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
			return "", 0, false
		}
		return strconv.FormatInt(cq.From.ID, 10), cq.Message.Chat.ID, true
	case u.Message != nil:
		m := u.Message
		if m.From == nil || m.Chat == nil {
			return "", 0, false
		}
		return strconv.FormatInt(m.From.ID, 10), m.Chat.ID, true
	}
	return "", 0, false
}
