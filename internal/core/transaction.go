package core

// transaction.go is the per-user movement conversation.
//
// Fields are collected in a fixed order with no skipping:
//
//	AwaitingPart -> AwaitingMovement -> AwaitingQuantity ->
//	AwaitingCondition -> AwaitingPurpose -> Committed
//
// Cancelled is reachable from every non-terminal state. A failed append
// ends in Aborted. In every terminal state the draft has been cleared.
// Invalid input returns a *ValidationError and leaves state and draft
// untouched.
//
// A Transaction is not safe for concurrent use; callers serialize events
// per user.

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// State is a position in the movement conversation.
type State int

const (
	AwaitingPart State = iota
	AwaitingMovement
	AwaitingQuantity
	AwaitingCondition
	AwaitingPurpose
	Committed
	Cancelled
	Aborted
)

var stateNames = [...]string{
	AwaitingPart:      "awaiting_part",
	AwaitingMovement:  "awaiting_movement",
	AwaitingQuantity:  "awaiting_quantity",
	AwaitingCondition: "awaiting_condition",
	AwaitingPurpose:   "awaiting_purpose",
	Committed:         "committed",
	Cancelled:         "cancelled",
	Aborted:           "aborted",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Terminal reports whether no further input is accepted.
func (s State) Terminal() bool {
	return s >= Committed
}

// ErrOutOfOrder is returned when a field is submitted in the wrong state.
var ErrOutOfOrder = errors.New("field submitted out of order")

// Draft accumulates the fields of one movement.
type Draft struct {
	PartID    string
	PartName  string
	Movement  string
	Quantity  int
	Condition string
	Purpose   string
}

// Committer appends a finished draft. *Ledger implements it.
type Committer interface {
	Commit(ctx context.Context, userID string, d Draft) (Receipt, error)
}

// Transaction is one movement conversation for one user.
type Transaction struct {
	userID     string
	opts       Options
	state      State
	draft      Draft
	candidates []Candidate
	notice     string
}

// NewTransaction starts a conversation in AwaitingPart.
func NewTransaction(userID string, opts Options) *Transaction {
	return &Transaction{userID: userID, opts: opts, state: AwaitingPart}
}

// State returns the current state.
func (t *Transaction) State() State { return t.state }

// Draft returns a copy of the fields collected so far.
func (t *Transaction) Draft() Draft { return t.draft }

// UserID returns the user the transaction belongs to.
func (t *Transaction) UserID() string { return t.userID }

// Candidates returns the choices from the last Ambiguous resolution.
func (t *Transaction) Candidates() []Candidate { return t.candidates }

// Notice returns the Lenient reason recorded when the part was accepted
// without a catalog match, or "".
func (t *Transaction) Notice() string { return t.notice }

func (t *Transaction) expect(s State) error {
	if t.state != s {
		return fmt.Errorf("%w: in %s, want %s", ErrOutOfOrder, t.state, s)
	}
	return nil
}

// SubmitPart applies a resolution outcome. Ambiguous holds the state and
// keeps the candidates for PickPart; Resolved and Lenient advance.
func (t *Transaction) SubmitPart(res Resolution) error {
	if err := t.expect(AwaitingPart); err != nil {
		return err
	}

	switch r := res.(type) {
	case Resolved:
		t.acceptPart(r.ID, r.Name, "")
	case Lenient:
		if r.Raw == "" {
			return &ValidationError{Field: FieldPartID, Message: "part identifier is empty"}
		}
		t.acceptPart(r.Raw, "", r.Reason)
	case Ambiguous:
		t.candidates = r.Candidates
	default:
		return fmt.Errorf("unknown resolution %T", res)
	}
	return nil
}

// PickPart accepts a part chosen from the candidate list.
func (t *Transaction) PickPart(id string) error {
	if err := t.expect(AwaitingPart); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return &ValidationError{Field: FieldPartID, Message: "part identifier is empty"}
	}

	name := ""
	for _, c := range t.candidates {
		if c.ID == id {
			name = c.Name
			break
		}
	}
	t.acceptPart(id, name, "")
	return nil
}

func (t *Transaction) acceptPart(id, name, notice string) {
	t.draft.PartID = id
	t.draft.PartName = name
	t.notice = notice
	t.candidates = nil
	t.state = AwaitingMovement
}

// SubmitMovement accepts one of the configured movement types.
func (t *Transaction) SubmitMovement(s string) error {
	if err := t.expect(AwaitingMovement); err != nil {
		return err
	}
	v, ok := t.opts.Movement(s)
	if !ok {
		return &ValidationError{
			Field:   FieldMovement,
			Value:   s,
			Message: "must be one of: " + strings.Join(t.opts.Movements, ", "),
		}
	}
	t.draft.Movement = v
	t.state = AwaitingQuantity
	return nil
}

// SubmitQuantity accepts a positive whole number.
func (t *Transaction) SubmitQuantity(s string) error {
	if err := t.expect(AwaitingQuantity); err != nil {
		return err
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return &ValidationError{Field: FieldQuantity, Value: s, Message: "must be a whole number greater than 0"}
	}
	t.draft.Quantity = n
	t.state = AwaitingCondition
	return nil
}

// SubmitCondition accepts one of the configured conditions.
func (t *Transaction) SubmitCondition(s string) error {
	if err := t.expect(AwaitingCondition); err != nil {
		return err
	}
	v, ok := t.opts.Condition(s)
	if !ok {
		return &ValidationError{
			Field:   FieldCondition,
			Value:   s,
			Message: "must be one of: " + strings.Join(t.opts.Conditions, ", "),
		}
	}
	t.draft.Condition = v
	t.state = AwaitingPurpose
	return nil
}

// SubmitPurpose records the purpose and commits the draft. On success the
// state is Committed; if the append fails it is Aborted. The draft is
// cleared either way.
func (t *Transaction) SubmitPurpose(ctx context.Context, purpose string, c Committer) (Receipt, error) {
	if err := t.expect(AwaitingPurpose); err != nil {
		return Receipt{}, err
	}
	t.draft.Purpose = strings.TrimSpace(purpose)

	receipt, err := c.Commit(ctx, t.userID, t.draft)
	t.clear()
	if err != nil {
		t.state = Aborted
		return Receipt{}, err
	}
	t.state = Committed
	return receipt, nil
}

// Cancel ends a live conversation. It reports false if already terminal.
func (t *Transaction) Cancel() bool {
	if t.state.Terminal() {
		return false
	}
	t.clear()
	t.state = Cancelled
	return true
}

func (t *Transaction) clear() {
	t.draft = Draft{}
	t.candidates = nil
	t.notice = ""
}
