package core

// ledger.go builds and appends movement rows.
//
// The ledger header is resolved immediately before every append, so a
// column that was moved or renamed in the sheet since the conversation
// began still receives the right value. Cells whose header resolves to no
// ledger field are written blank; the row is always exactly as wide as
// the header.

import (
	"context"
	"time"
)

// DefaultTimestampLayout renders timestamps as month/day/year with seconds.
const DefaultTimestampLayout = "01/02/06 15:04:05"

// LedgerRecord is one finalized movement.
type LedgerRecord struct {
	Timestamp time.Time
	PartID    string
	Movement  string
	Quantity  int
	Condition string
	UserID    string
	Purpose   string
}

// BuildLedgerRow positions rec according to schema. Quantity is written as
// a number so the sheet can sum it.
func BuildLedgerRow(schema LedgerSchema, rec LedgerRecord, layout string) []any {
	row := make([]any, schema.Width())
	for i := range row {
		row[i] = ""
	}

	set := func(f Field, v any) {
		if i, ok := schema.Index[f]; ok && i >= 0 && i < len(row) {
			row[i] = v
		}
	}

	set(FieldTimestamp, rec.Timestamp.Format(layout))
	set(FieldPartID, rec.PartID)
	set(FieldMovement, rec.Movement)
	if rec.Quantity > 0 {
		set(FieldQuantity, rec.Quantity)
	}
	set(FieldCondition, rec.Condition)
	set(FieldUserID, rec.UserID)
	set(FieldPurpose, rec.Purpose)

	return row
}

// LedgerConfig configures a Ledger.
type LedgerConfig struct {
	Sheet    string
	Synonyms SynonymSet
	Location *time.Location // defaults to UTC
	Layout   string         // defaults to DefaultTimestampLayout
	Now      func() time.Time
}

// Receipt describes an appended row.
type Receipt struct {
	Timestamp string
	Record    LedgerRecord
	Row       []any
}

// Ledger appends movement records to the ledger sheet.
type Ledger struct {
	store SheetStore
	cfg   LedgerConfig
}

// NewLedger creates a ledger writing to cfg.Sheet in store.
func NewLedger(store SheetStore, cfg LedgerConfig) *Ledger {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Layout == "" {
		cfg.Layout = DefaultTimestampLayout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Ledger{store: store, cfg: cfg}
}

// Sheet returns the ledger sheet name.
func (l *Ledger) Sheet() string {
	return l.cfg.Sheet
}

// Schema reads the current ledger header and resolves it.
func (l *Ledger) Schema(ctx context.Context) (LedgerSchema, error) {
	header, _, err := l.store.HeaderAndRows(ctx, l.cfg.Sheet)
	if err != nil {
		return LedgerSchema{}, NewAccessError("read", l.cfg.Sheet, err)
	}
	return ResolveLedgerSchema(l.cfg.Sheet, header, l.cfg.Synonyms)
}

// Commit stamps d with the current time and userID and appends it as one
// row. Nothing is retried.
func (l *Ledger) Commit(ctx context.Context, userID string, d Draft) (Receipt, error) {
	schema, err := l.Schema(ctx)
	if err != nil {
		return Receipt{}, err
	}

	ts := l.cfg.Now().In(l.cfg.Location)
	rec := LedgerRecord{
		Timestamp: ts,
		PartID:    d.PartID,
		Movement:  d.Movement,
		Quantity:  d.Quantity,
		Condition: d.Condition,
		UserID:    userID,
		Purpose:   d.Purpose,
	}
	row := BuildLedgerRow(schema, rec, l.cfg.Layout)

	if err := l.store.AppendRow(ctx, l.cfg.Sheet, row); err != nil {
		return Receipt{}, NewAccessError("append", l.cfg.Sheet, err)
	}

	return Receipt{
		Timestamp: ts.Format(l.cfg.Layout),
		Record:    rec,
		Row:       row,
	}, nil
}
