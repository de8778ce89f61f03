package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// advanceTo walks a fresh transaction up to the requested state.
func advanceTo(t *testing.T, s State) *Transaction {
	t.Helper()
	tx := NewTransaction("7", DefaultOptions())
	steps := []func() error{
		func() error { return tx.SubmitPart(Resolved{ID: "ABC-001", Name: "Bearing 608"}) },
		func() error { return tx.SubmitMovement("Out") },
		func() error { return tx.SubmitQuantity("3") },
		func() error { return tx.SubmitCondition("Used") },
	}
	for i := 0; i < int(s) && i < len(steps); i++ {
		if err := steps[i](); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if tx.State() != s {
		t.Fatalf("state = %s, want %s", tx.State(), s)
	}
	return tx
}

func TestTransaction_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.set("TransaksiGudang", ledgerHeader)
	store.set("Sparepart", []string{"PartID", "NamaPart"}, []string{"ABC-001", "Bearing 608"})

	resolver := NewResolver(store, "Sparepart", DefaultSynonyms().Master)
	ledger := newTestLedger(t, store)
	tx := NewTransaction("1001", DefaultOptions())

	res := resolver.Resolve(ctx, "bearing")
	if want := (Resolved{ID: "ABC-001", Name: "Bearing 608"}); !reflect.DeepEqual(res, want) {
		t.Fatalf("resolution = %#v, want %#v", res, want)
	}
	if err := tx.SubmitPart(res); err != nil {
		t.Fatal(err)
	}
	if err := tx.SubmitMovement("Out"); err != nil {
		t.Fatal(err)
	}
	if err := tx.SubmitQuantity("3"); err != nil {
		t.Fatal(err)
	}
	if err := tx.SubmitCondition("Used"); err != nil {
		t.Fatal(err)
	}
	if _, err := tx.SubmitPurpose(ctx, "maintenance", ledger); err != nil {
		t.Fatal(err)
	}

	if tx.State() != Committed {
		t.Errorf("state = %s, want committed", tx.State())
	}
	if tx.Draft() != (Draft{}) {
		t.Errorf("draft not cleared: %#v", tx.Draft())
	}

	rows := store.appended["TransaksiGudang"]
	if len(rows) != 1 {
		t.Fatalf("appended %d rows, want 1", len(rows))
	}
	row := rows[0]
	if row[0] == "" {
		t.Error("timestamp is blank")
	}
	want := []any{"ABC-001", "Out", 3, "Used", "1001", "maintenance"}
	if !reflect.DeepEqual(row[1:], want) {
		t.Errorf("row[1:] = %#v, want %#v", row[1:], want)
	}
}

func TestTransaction_LenientKeepsRawInput(t *testing.T) {
	store := newFakeStore()
	store.set("Sparepart", []string{"PartID", "NamaPart"}, []string{"ABC-001", "Bearing 608"})
	resolver := NewResolver(store, "Sparepart", DefaultSynonyms().Master)
	tx := NewTransaction("1", DefaultOptions())

	res := resolver.Resolve(context.Background(), "xyz")
	if _, ok := res.(Lenient); !ok {
		t.Fatalf("expected Lenient, got %#v", res)
	}
	if err := tx.SubmitPart(res); err != nil {
		t.Fatal(err)
	}
	if tx.Draft().PartID != "xyz" {
		t.Errorf("PartID = %q, want xyz", tx.Draft().PartID)
	}
	if tx.Notice() != ReasonNotInMaster {
		t.Errorf("Notice = %q", tx.Notice())
	}
	if tx.State() != AwaitingMovement {
		t.Errorf("state = %s, want awaiting_movement", tx.State())
	}
}

func TestTransaction_AmbiguousHoldsAndPick(t *testing.T) {
	tx := NewTransaction("1", DefaultOptions())
	amb := Ambiguous{Candidates: []Candidate{{ID: "V-100", Name: "V-Belt A40"}, {ID: "V-101", Name: "V-Belt A42"}}}

	if err := tx.SubmitPart(amb); err != nil {
		t.Fatal(err)
	}
	if tx.State() != AwaitingPart {
		t.Fatalf("state = %s, want awaiting_part", tx.State())
	}
	if !reflect.DeepEqual(tx.Candidates(), amb.Candidates) {
		t.Errorf("Candidates = %v", tx.Candidates())
	}

	if err := tx.PickPart("V-101"); err != nil {
		t.Fatal(err)
	}
	d := tx.Draft()
	if d.PartID != "V-101" || d.PartName != "V-Belt A42" {
		t.Errorf("draft = %#v", d)
	}
	if tx.Candidates() != nil {
		t.Error("candidates not cleared after pick")
	}
	if tx.State() != AwaitingMovement {
		t.Errorf("state = %s", tx.State())
	}
}

func TestTransaction_InvalidInputHoldsState(t *testing.T) {
	tests := []struct {
		name  string
		state State
		apply func(*Transaction) error
		field Field
	}{
		{"empty part", AwaitingPart, func(tx *Transaction) error { return tx.SubmitPart(Lenient{Raw: "", Reason: ReasonEmptyInput}) }, FieldPartID},
		{"blank pick", AwaitingPart, func(tx *Transaction) error { return tx.PickPart("  ") }, FieldPartID},
		{"unknown movement", AwaitingMovement, func(tx *Transaction) error { return tx.SubmitMovement("Sideways") }, FieldMovement},
		{"negative quantity", AwaitingQuantity, func(tx *Transaction) error { return tx.SubmitQuantity("-5") }, FieldQuantity},
		{"zero quantity", AwaitingQuantity, func(tx *Transaction) error { return tx.SubmitQuantity("0") }, FieldQuantity},
		{"non-numeric quantity", AwaitingQuantity, func(tx *Transaction) error { return tx.SubmitQuantity("abc") }, FieldQuantity},
		{"fractional quantity", AwaitingQuantity, func(tx *Transaction) error { return tx.SubmitQuantity("1.5") }, FieldQuantity},
		{"unknown condition", AwaitingCondition, func(tx *Transaction) error { return tx.SubmitCondition("Rusak") }, FieldCondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := advanceTo(t, tt.state)
			before := tx.Draft()

			err := tt.apply(tx)

			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
			if tx.State() != tt.state {
				t.Errorf("state = %s, want %s", tx.State(), tt.state)
			}
			if tx.Draft() != before {
				t.Errorf("draft changed: %#v -> %#v", before, tx.Draft())
			}
		})
	}
}

func TestTransaction_CanonicalChoices(t *testing.T) {
	tx := advanceTo(t, AwaitingMovement)
	if err := tx.SubmitMovement(" out "); err != nil {
		t.Fatal(err)
	}
	if err := tx.SubmitQuantity(" 4 "); err != nil {
		t.Fatal(err)
	}
	if err := tx.SubmitCondition("BARU"); err != nil {
		t.Fatal(err)
	}

	d := tx.Draft()
	if d.Movement != "Out" || d.Quantity != 4 || d.Condition != "Baru" {
		t.Errorf("draft = %#v", d)
	}
}

func TestTransaction_OutOfOrder(t *testing.T) {
	tx := NewTransaction("1", DefaultOptions())

	if err := tx.SubmitQuantity("3"); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("SubmitQuantity in awaiting_part: got %v, want ErrOutOfOrder", err)
	}
	if _, err := tx.SubmitPurpose(context.Background(), "x", nil); !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("SubmitPurpose in awaiting_part: got %v, want ErrOutOfOrder", err)
	}
	if tx.State() != AwaitingPart {
		t.Errorf("state = %s", tx.State())
	}
}

func TestTransaction_Cancel(t *testing.T) {
	for s := AwaitingPart; s <= AwaitingPurpose; s++ {
		t.Run(s.String(), func(t *testing.T) {
			tx := advanceTo(t, s)
			if !tx.Cancel() {
				t.Fatal("Cancel() = false on live transaction")
			}
			if tx.State() != Cancelled {
				t.Errorf("state = %s", tx.State())
			}
			if tx.Draft() != (Draft{}) {
				t.Errorf("draft not cleared: %#v", tx.Draft())
			}
			if tx.Cancel() {
				t.Error("second Cancel() = true")
			}
		})
	}
}

func TestTransaction_AppendFailureAborts(t *testing.T) {
	store := newFakeStore()
	store.set("TransaksiGudang", ledgerHeader)
	store.appendErr = errors.New("503")
	ledger := newTestLedger(t, store)

	tx := advanceTo(t, AwaitingPurpose)
	_, err := tx.SubmitPurpose(context.Background(), "maintenance", ledger)

	var ae *AccessError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AccessError, got %v", err)
	}
	if tx.State() != Aborted {
		t.Errorf("state = %s, want aborted", tx.State())
	}
	if tx.Draft() != (Draft{}) {
		t.Errorf("draft not discarded: %#v", tx.Draft())
	}
	if !tx.State().Terminal() {
		t.Error("aborted should be terminal")
	}
}
