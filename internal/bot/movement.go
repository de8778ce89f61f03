package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/JonMunkholm/partbot/internal/core"
	"github.com/JonMunkholm/partbot/internal/logging"
)

// movement feeds one event into the user's transaction.
func (b *Bot) movement(ctx context.Context, conv *conversation, ev Event) []Reply {
	tx := conv.tx

	switch tx.State() {
	case core.AwaitingPart:
		return b.partStep(ctx, tx, ev)

	case core.AwaitingMovement:
		v, pressed, ok := choice(ev, prefixMovement)
		if !ok {
			return b.stale(ev, b.prompt(tx))
		}
		if err := tx.SubmitMovement(v); err != nil {
			return []Reply{b.rejected(ctx, err, b.prompt(tx))}
		}
		return b.advance(pressed, "Jenis: "+esc(tx.Draft().Movement), b.prompt(tx))

	case core.AwaitingQuantity:
		if ev.Kind != EventText {
			return b.stale(ev, b.prompt(tx))
		}
		if err := tx.SubmitQuantity(ev.Text); err != nil {
			return []Reply{b.rejected(ctx, err, Reply{})}
		}
		return []Reply{b.prompt(tx)}

	case core.AwaitingCondition:
		v, pressed, ok := choice(ev, prefixCondition)
		if !ok {
			return b.stale(ev, b.prompt(tx))
		}
		if err := tx.SubmitCondition(v); err != nil {
			return []Reply{b.rejected(ctx, err, b.prompt(tx))}
		}
		return b.advance(pressed, "Kondisi: "+esc(tx.Draft().Condition), b.prompt(tx))

	case core.AwaitingPurpose:
		if ev.Kind != EventText {
			return b.stale(ev, b.prompt(tx))
		}
		return []Reply{b.commit(ctx, tx, ev.Text)}
	}

	return nil
}

func (b *Bot) partStep(ctx context.Context, tx *core.Transaction, ev Event) []Reply {
	switch ev.Kind {
	case EventButton:
		arg, ok := strings.CutPrefix(ev.Text, prefixPickPart)
		if !ok {
			return b.stale(ev, b.prompt(tx))
		}
		id, found := pickCandidate(tx.Candidates(), arg)
		if !found {
			return b.stale(ev, b.prompt(tx))
		}
		if err := tx.PickPart(id); err != nil {
			return []Reply{b.rejected(ctx, err, b.prompt(tx))}
		}
		return b.advance(true, "PartID dipilih: "+code(id), b.prompt(tx))

	case EventPhoto:
		if b.decoder == nil {
			return []Reply{{Text: msgQRUnsupported}}
		}
		text, err := b.decoder.DecodeBytes(ev.Photo)
		if err != nil {
			logging.FromContext(ctx).Info("QR decode failed", "error", err, "bytes", len(ev.Photo))
			return []Reply{{Text: msgQRUnreadable}}
		}
		return b.submitPart(ctx, tx, text)

	case EventText:
		if strings.TrimSpace(ev.Text) == "" {
			return []Reply{{Text: msgEmptyPart}}
		}
		return b.submitPart(ctx, tx, ev.Text)
	}

	return []Reply{b.prompt(tx)}
}

func (b *Bot) submitPart(ctx context.Context, tx *core.Transaction, text string) []Reply {
	return b.applyResolution(ctx, tx, text, b.resolver.Resolve(ctx, text))
}

func (b *Bot) applyResolution(ctx context.Context, tx *core.Transaction, text string, res core.Resolution) []Reply {
	if err := tx.SubmitPart(res); err != nil {
		if core.IsValidation(err) {
			return []Reply{{Text: msgEmptyPart}}
		}
		return []Reply{b.rejected(ctx, err, b.prompt(tx))}
	}

	switch r := res.(type) {
	case core.Ambiguous:
		n := min(len(r.Candidates), core.MaxChoiceButtons)
		buttons := make([]Button, 0, n)
		for i, c := range r.Candidates[:n] {
			l := c.Name
			if l == "" {
				l = c.ID
			}
			buttons = append(buttons, Button{Label: label(l), Data: choiceData(prefixPickPart, c.ID, i)})
		}
		logging.FromContext(ctx).Info("part ambiguous", "query", text, "candidates", len(r.Candidates))
		return []Reply{{Text: msgAmbiguous, Buttons: buttons}}

	case core.Resolved:
		logging.FromContext(ctx).Info("part resolved", "part_id", r.ID)
		p := b.prompt(tx)
		p.Text = partAccepted(r.ID, r.Name) + "\n" + p.Text
		return []Reply{p}

	case core.Lenient:
		logging.FromContext(ctx).Info("part accepted leniently", "raw", r.Raw, "reason", r.Reason)
		warn := msgNotInMaster
		if r.Reason == core.ReasonMasterUnavailable {
			warn = msgMasterDown
		}
		return []Reply{{Text: warn}, b.prompt(tx)}
	}
	return []Reply{b.prompt(tx)}
}

func (b *Bot) commit(ctx context.Context, tx *core.Transaction, purpose string) Reply {
	logger := logging.FromContext(ctx)

	receipt, err := tx.SubmitPurpose(ctx, purpose, b.ledger)
	if err != nil {
		logger.Error("ledger append failed", "sheet", b.ledger.Sheet(), "error", err)
		return Reply{Text: saveFailed(err)}
	}

	logger.Info("movement saved",
		"sheet", b.ledger.Sheet(),
		"part_id", receipt.Record.PartID,
		"movement", receipt.Record.Movement,
		"quantity", receipt.Record.Quantity,
	)
	return Reply{Text: savedMessage(b.ledger.Sheet(), receipt), Markdown: true}
}

// prompt asks for the field the transaction is waiting on.
func (b *Bot) prompt(tx *core.Transaction) Reply {
	switch tx.State() {
	case core.AwaitingPart:
		return Reply{Text: msgPartPrompt, Markdown: true}
	case core.AwaitingMovement:
		return Reply{Text: movementPrompt(b.opts), Markdown: true, Buttons: optionButtons(prefixMovement, b.opts.Movements)}
	case core.AwaitingQuantity:
		return Reply{Text: msgQtyPrompt, Markdown: true}
	case core.AwaitingCondition:
		return Reply{Text: msgCondPrompt, Markdown: true, Buttons: optionButtons(prefixCondition, b.opts.Conditions)}
	case core.AwaitingPurpose:
		return Reply{Text: msgPurposePrompt, Markdown: true}
	}
	return Reply{Text: msgIdle}
}

// advance confirms an accepted field and asks for the next one. A pressed
// button's message is edited into the confirmation.
func (b *Bot) advance(pressed bool, confirm string, next Reply) []Reply {
	if pressed {
		return []Reply{{Text: confirm, Markdown: true, Edit: true}, next}
	}
	return []Reply{next}
}

// rejected explains a refused field. The state is unchanged, so follow
// (when set) repeats the current prompt.
func (b *Bot) rejected(ctx context.Context, err error, follow Reply) Reply {
	var ve *core.ValidationError
	if !errors.As(err, &ve) {
		logger := logging.FromContext(ctx)
		if core.IsUserFacing(err) {
			logger.Warn("event rejected", "error", err)
		} else {
			logger.Error("event failed", "error", err)
		}
		return Reply{Text: core.FormatUserError(err)}
	}

	logging.FromContext(ctx).Info("input rejected", "field", ve.Field, "value", ve.Value)

	var r Reply
	switch ve.Field {
	case core.FieldQuantity:
		r = Reply{Text: msgQtyInvalid}
	case core.FieldMovement:
		r = Reply{Text: invalidChoice("Jenis", b.opts.Movements), Markdown: true}
	case core.FieldCondition:
		r = Reply{Text: invalidChoice("Kondisi", b.opts.Conditions), Markdown: true}
	default:
		r = Reply{Text: core.FormatUserError(err)}
	}
	r.Buttons = follow.Buttons
	return r
}

// stale answers input the current step cannot use.
func (b *Bot) stale(ev Event, current Reply) []Reply {
	if ev.Kind == EventButton {
		return []Reply{{Text: msgStale, Edit: true}, current}
	}
	return []Reply{current}
}

// choice reads a closed-set answer from a button with prefix or from
// typed text.
func choice(ev Event, prefix string) (value string, pressed, ok bool) {
	switch ev.Kind {
	case EventButton:
		v, found := strings.CutPrefix(ev.Text, prefix)
		return v, true, found
	case EventText:
		return ev.Text, false, true
	}
	return "", false, false
}

// pickCandidate decodes a pickpid payload against the offered candidates.
// Plain identifiers are accepted even when not offered; the button may
// come from an earlier message.
func pickCandidate(cands []core.Candidate, arg string) (string, bool) {
	if idx, ok := strings.CutPrefix(arg, "#"); ok {
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 || i >= len(cands) {
			return "", false
		}
		return cands[i].ID, true
	}
	if strings.TrimSpace(arg) == "" {
		return "", false
	}
	return arg, true
}
