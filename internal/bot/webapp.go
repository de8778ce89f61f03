package bot

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/JonMunkholm/partbot/internal/core"
	"github.com/JonMunkholm/partbot/internal/logging"
)

const msgWebAppInvalid = "Data formulir tidak valid. Gunakan /mutasi untuk mencatat secara manual."

// webAppPayload is the form an embedded web app submits.
type webAppPayload struct {
	PartID    string     `json:"part_id"`
	Movement  string     `json:"movement"`
	Quantity  flexString `json:"quantity"`
	Condition string     `json:"condition"`
	Purpose   string     `json:"purpose"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// webApp runs a submitted form through a fresh transaction, field by field
// in the usual order. The first refused field stops the run and leaves
// the conversation waiting on it, exactly as if it had been typed.
func (b *Bot) webApp(ctx context.Context, sl *slot, ev Event) []Reply {
	var p webAppPayload
	if err := json.Unmarshal([]byte(ev.Text), &p); err != nil {
		logging.FromContext(ctx).Info("web app payload rejected", "user_id", ev.UserID, "error", err)
		return []Reply{{Text: msgWebAppInvalid}}
	}

	conv := newConversation(flowMovement)
	conv.tx = core.NewTransaction(ev.UserID, b.opts)
	sl.conv = conv
	ctx = logging.WithConversation(ctx, conv.id, ev.UserID)
	logging.FromContext(ctx).Info("conversation started", "flow", "movement", "source", "web_app")

	tx := conv.tx
	if strings.TrimSpace(p.PartID) == "" {
		return []Reply{{Text: msgEmptyPart}}
	}

	res := b.resolver.Resolve(ctx, p.PartID)
	replies := b.applyResolution(ctx, tx, p.PartID, res)
	if tx.State() != core.AwaitingMovement {
		return replies
	}

	// Keep the lenient warning; the movement prompt is not needed.
	var notes []Reply
	if _, ok := res.(core.Lenient); ok {
		notes = replies[:1]
	}

	steps := []func() error{
		func() error { return tx.SubmitMovement(p.Movement) },
		func() error { return tx.SubmitQuantity(string(p.Quantity)) },
		func() error { return tx.SubmitCondition(p.Condition) },
	}
	for _, submit := range steps {
		if err := submit(); err != nil {
			return append(notes, b.rejected(ctx, err, b.prompt(tx)))
		}
	}

	reply := b.commit(ctx, tx, p.Purpose)
	sl.conv = nil
	return append(notes, reply)
}
