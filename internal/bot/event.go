package bot

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// EventKind tells the engine how to read an Event.
type EventKind int

const (
	EventText EventKind = iota
	EventCommand
	EventPhoto
	EventButton
	EventWebApp
)

// Event is one inbound chat update for one user.
type Event struct {
	UserID string
	Kind   EventKind

	// Text is the message text for EventText, the command name without the
	// slash for EventCommand, the button payload for EventButton and the
	// raw JSON for EventWebApp.
	Text string

	// Args holds whatever followed the command name.
	Args string

	// Photo is the encoded image for EventPhoto.
	Photo []byte
}

// ParseText builds a text or command event from a message. "/cari@gudang_bot
// bearing" becomes command "cari" with args "bearing".
func ParseText(userID, text string) Event {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return Event{UserID: userID, Kind: EventText, Text: text}
	}

	name, args, _ := strings.Cut(trimmed[1:], " ")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return Event{
		UserID: userID,
		Kind:   EventCommand,
		Text:   strings.ToLower(name),
		Args:   strings.TrimSpace(args),
	}
}

// Button is one single-choice option. Buttons are laid out one per row.
type Button struct {
	Label string
	Data  string
}

// Reply is one outbound message.
type Reply struct {
	Text     string
	Markdown bool
	Buttons  []Button

	// Edit replaces the message whose button was pressed instead of
	// sending a new one. Only meaningful in answer to EventButton.
	Edit bool
}

// MaxButtonData is the largest button payload a chat client accepts, in
// bytes.
const MaxButtonData = 64

// maxButtonLabel caps a button label, in runes.
const maxButtonLabel = 50

// Button payload prefixes.
const (
	prefixPickPart  = "pickpid:"
	prefixMovement  = "jenis:"
	prefixCondition = "kondisi:"
	prefixSearch    = "caripick:"
)

// choiceData encodes a pick. Identifiers that would overflow the payload
// limit are sent as "#index" into the list the buttons were built from.
func choiceData(prefix, id string, index int) string {
	if id != "" && !strings.HasPrefix(id, "#") && len(prefix)+len(id) <= MaxButtonData {
		return prefix + id
	}
	return prefix + "#" + strconv.Itoa(index)
}

func label(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxButtonLabel {
		return s
	}
	r := []rune(s)
	return string(r[:maxButtonLabel])
}
