// Package bot is the transport-independent chat engine.
//
// A transport turns chat updates into Events and delivers the Replies that
// Handle returns. Two flows exist: /mutasi walks a core.Transaction to a
// ledger append, and /cari looks parts up in the master catalog. Issuing
// either command replaces whatever conversation the user had.
package bot

import (
	"context"
	"log/slog"

	"github.com/JonMunkholm/partbot/internal/core"
	"github.com/JonMunkholm/partbot/internal/logging"
)

// PartResolver maps free text to a part. *core.Resolver implements it.
type PartResolver interface {
	Resolve(ctx context.Context, query string) core.Resolution
}

// PartSearcher looks parts up. *core.Searcher implements it.
type PartSearcher interface {
	Search(ctx context.Context, query string) ([]core.PartRecord, error)
	Find(ctx context.Context, id string) (core.PartRecord, bool, error)
}

// Ledger commits finished movements. *core.Ledger implements it.
type Ledger interface {
	core.Committer
	Sheet() string
	Schema(ctx context.Context) (core.LedgerSchema, error)
}

// ImageDecoder extracts a part identifier from a photo. *qr.Decoder
// implements it.
type ImageDecoder interface {
	DecodeBytes(b []byte) (string, error)
}

// MinQueryLength is the shortest search query accepted, in runes.
const MinQueryLength = 2

// Deps wires a Bot. Decoder may be nil; photos are then refused.
type Deps struct {
	Resolver PartResolver
	Searcher PartSearcher
	Ledger   Ledger
	Decoder  ImageDecoder
	Options  core.Options
	Sessions *Sessions
}

// Bot handles chat events.
type Bot struct {
	resolver PartResolver
	searcher PartSearcher
	ledger   Ledger
	decoder  ImageDecoder
	opts     core.Options
	sessions *Sessions
}

// New creates a Bot.
func New(d Deps) *Bot {
	if d.Sessions == nil {
		d.Sessions = NewSessions(DefaultIdleTTL)
	}
	if len(d.Options.Movements) == 0 || len(d.Options.Conditions) == 0 {
		d.Options = core.DefaultOptions()
	}
	return &Bot{
		resolver: d.Resolver,
		searcher: d.Searcher,
		ledger:   d.Ledger,
		decoder:  d.Decoder,
		opts:     d.Options,
		sessions: d.Sessions,
	}
}

// Sessions returns the conversation table.
func (b *Bot) Sessions() *Sessions { return b.sessions }

// Handle processes one event to completion and returns the replies in
// send order. Events for the same user are serialized.
func (b *Bot) Handle(ctx context.Context, ev Event) []Reply {
	if ev.UserID == "" {
		return nil
	}

	sl := b.sessions.acquire(ev.UserID)
	defer b.sessions.release(sl)

	if ev.Kind == EventCommand {
		return b.command(ctx, sl, ev)
	}
	if ev.Kind == EventWebApp {
		return b.webApp(ctx, sl, ev)
	}

	conv := sl.conv
	if conv == nil {
		if ev.Kind == EventButton {
			return []Reply{{Text: msgExpired, Edit: true}}
		}
		return []Reply{{Text: msgIdle}}
	}

	ctx = logging.WithConversation(ctx, conv.id, ev.UserID)
	logging.FromContext(ctx).Debug("chat event", "kind", ev.Kind, "flow", conv.flow)

	var replies []Reply
	switch conv.flow {
	case flowMovement:
		replies = b.movement(ctx, conv, ev)
		if conv.tx.State().Terminal() {
			sl.conv = nil
		}
	case flowSearch:
		var done bool
		replies, done = b.search(ctx, conv, ev)
		if done {
			sl.conv = nil
		}
	}
	return replies
}

func (b *Bot) command(ctx context.Context, sl *slot, ev Event) []Reply {
	switch ev.Text {
	case "start", "help":
		return []Reply{{Text: msgHelp}}

	case "mutasi":
		sl.conv = newConversation(flowMovement)
		sl.conv.tx = core.NewTransaction(ev.UserID, b.opts)
		b.logStart(ctx, sl.conv, ev.UserID)
		if ev.Args != "" {
			return b.movement(logging.WithConversation(ctx, sl.conv.id, ev.UserID), sl.conv,
				Event{UserID: ev.UserID, Kind: EventText, Text: ev.Args})
		}
		return []Reply{{Text: msgPartPrompt, Markdown: true}}

	case "cari":
		sl.conv = newConversation(flowSearch)
		b.logStart(ctx, sl.conv, ev.UserID)
		if ev.Args != "" {
			replies, done := b.search(logging.WithConversation(ctx, sl.conv.id, ev.UserID), sl.conv,
				Event{UserID: ev.UserID, Kind: EventText, Text: ev.Args})
			if done {
				sl.conv = nil
			}
			return replies
		}
		return []Reply{{Text: msgSearchPrompt, Markdown: true}}

	case "cancel", "batal":
		if sl.conv != nil {
			if sl.conv.tx != nil {
				sl.conv.tx.Cancel()
			}
			logging.FromContext(logging.WithConversation(ctx, sl.conv.id, ev.UserID)).Info("conversation cancelled")
		}
		sl.conv = nil
		return []Reply{{Text: msgCancelled}}

	case "debug_schema", "debug_tg":
		return []Reply{b.debugSchema(ctx)}
	}

	return []Reply{{Text: msgUnknown + "\n\n" + msgHelp}}
}

func (b *Bot) logStart(ctx context.Context, conv *conversation, userID string) {
	name := "movement"
	if conv.flow == flowSearch {
		name = "search"
	}
	logging.FromContext(logging.WithConversation(ctx, conv.id, userID)).Info("conversation started", "flow", name)
}

func (b *Bot) debugSchema(ctx context.Context) Reply {
	schema, err := b.ledger.Schema(ctx)
	if err != nil {
		slog.WarnContext(ctx, "ledger schema unavailable", "sheet", b.ledger.Sheet(), "error", err)
		return Reply{Text: "Error: " + core.FormatUserError(err) + "\n" + err.Error()}
	}
	return Reply{Text: schemaDump(b.ledger.Sheet(), schema), Markdown: true}
}
