package bot

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/partbot/internal/core"
	"github.com/JonMunkholm/partbot/internal/logging"
)

// search runs one /cari step. done reports whether the conversation ended.
//
// A failed catalog read keeps the conversation open so the user can retry
// without re-entering /cari.
func (b *Bot) search(ctx context.Context, conv *conversation, ev Event) (replies []Reply, done bool) {
	logger := logging.FromContext(ctx)

	switch ev.Kind {
	case EventButton:
		arg, ok := strings.CutPrefix(ev.Text, prefixSearch)
		if !ok {
			return []Reply{{Text: msgStale, Edit: true}}, false
		}
		rec, found, err := b.pick(ctx, conv, arg)
		if err != nil {
			logger.Warn("search pick failed", "error", err)
			return []Reply{{Text: searchFailed(err)}}, false
		}
		if !found {
			return []Reply{{Text: msgSearchNotFound, Edit: true}}, true
		}
		return []Reply{{Text: partDetails(rec), Markdown: true, Edit: true}}, true

	case EventText:
		q := strings.TrimSpace(ev.Text)
		if utf8.RuneCountInString(q) < MinQueryLength {
			return []Reply{{Text: msgSearchShort}}, false
		}

		results, err := b.searcher.Search(ctx, q)
		if err != nil {
			logger.Warn("search failed", "query", q, "error", err)
			return []Reply{{Text: searchFailed(err)}}, false
		}
		logger.Info("search", "query", q, "results", len(results))

		switch len(results) {
		case 0:
			return []Reply{{Text: msgSearchNone}}, false
		case 1:
			return []Reply{{Text: partDetails(results[0]), Markdown: true}}, true
		}

		conv.results = results[:min(len(results), core.MaxSearchCache)]
		n := min(len(results), core.MaxChoiceButtons)
		buttons := make([]Button, 0, n)
		for i, r := range results[:n] {
			l := r.Name
			if l == "" {
				l = r.ID
			}
			buttons = append(buttons, Button{Label: label(l), Data: choiceData(prefixSearch, r.ID, i)})
		}
		return []Reply{{Text: msgSearchMany, Buttons: buttons}}, false
	}

	return []Reply{{Text: msgSearchPrompt, Markdown: true}}, false
}

// pick finds the record behind a caripick payload: first in the cached
// results, then by a fresh lookup on the identifier.
func (b *Bot) pick(ctx context.Context, conv *conversation, arg string) (core.PartRecord, bool, error) {
	if idx, ok := strings.CutPrefix(arg, "#"); ok {
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 || i >= len(conv.results) {
			return core.PartRecord{}, false, nil
		}
		return conv.results[i], true, nil
	}

	for _, r := range conv.results {
		if r.ID == arg {
			return r, true, nil
		}
	}
	if arg == "" {
		return core.PartRecord{}, false, nil
	}
	return b.searcher.Find(ctx, arg)
}
