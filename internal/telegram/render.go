package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/JonMunkholm/partbot/internal/bot"
)

// render turns a reply into a send or, for Edit replies to a button, an
// edit of the message that carried the button.
func render(chatID int64, messageID int, r bot.Reply) tgbotapi.Chattable {
	parseMode := ""
	if r.Markdown {
		parseMode = tgbotapi.ModeMarkdown
	}

	if r.Edit && messageID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, r.Text)
		edit.ParseMode = parseMode
		if kb, ok := keyboard(r.Buttons); ok {
			edit.ReplyMarkup = &kb
		}
		return edit
	}

	msg := tgbotapi.NewMessage(chatID, r.Text)
	msg.ParseMode = parseMode
	if kb, ok := keyboard(r.Buttons); ok {
		msg.ReplyMarkup = kb
	}
	return msg
}

func keyboard(buttons []bot.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(buttons) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}
