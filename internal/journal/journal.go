// Package journal holds the typed views over the NocoDB tables: Expense rows,
// MAG day-log rows, and the coordinator that links an expense to the MAG entry
// sharing its date.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dkurup/bujo-bot/internal/nocodb"
)

// Column names shared by the Expenses and MAG tables.
const (
	FieldID         = "Id"
	FieldDate       = "Date"
	FieldItem       = "Item"
	FieldAmount     = "Amount"
	FieldDay        = "Day"
	FieldTithi      = "Tithi"
	FieldNote       = "Note"
	FieldExercise   = "Exercise"
	FieldExpenseSum = "Sum(Amount) from Expenses"
)

// ISODate is the calendar-date layout used across the store.
const ISODate = "2006-01-02"

// ErrNoDayLog reports that no MAG entry exists for the requested date. It is
// a user-actionable condition, not a system failure: the operator seeds MAG
// rows externally, one per calendar day.
var ErrNoDayLog = errors.New("journal: no MAG entry for date")

// LinkError reports that a created expense could not be attached to its MAG
// entry. The expense itself did persist; there is no compensating rollback.
type LinkError struct {
	ExpenseID string
	DayLogID  string
	Err       error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("journal: linking expense %s to MAG %s: %v", e.ExpenseID, e.DayLogID, e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }

// RecordStore is the slice of the store client the journal needs.
type RecordStore interface {
	Create(ctx context.Context, fields nocodb.Record) (nocodb.Record, error)
	Update(ctx context.Context, id string, fields nocodb.Record) (nocodb.Record, error)
	List(ctx context.Context, rawWhere, sort string) ([]nocodb.Record, error)
	LinkRecords(ctx context.Context, linkFieldID, recordID string, targetIDs []string) error
}

// Expense is one dated purchase.
type Expense struct {
	Item   string          `json:"Item"`
	Amount decimal.Decimal `json:"Amount"`
	Date   string          `json:"Date"`
}

// Normalize validates the required fields and clamps a future date to today.
// Interpretation sometimes resolves relative wording ("this friday") to a date
// that has not happened yet; an expense is never recorded ahead of time.
func (e *Expense) Normalize(now time.Time) error {
	if e.Item == "" {
		return errors.New("journal: expense is missing Item")
	}
	if e.Amount.IsZero() {
		return errors.New("journal: expense is missing Amount")
	}
	if e.Date == "" {
		return errors.New("journal: expense is missing Date")
	}
	d, err := time.Parse(ISODate, e.Date)
	if err != nil {
		return fmt.Errorf("journal: expense date %q is not an ISO date: %w", e.Date, err)
	}
	today := now.Format(ISODate)
	if d.Format(ISODate) > today {
		e.Date = today
	}
	return nil
}

// fields returns the expense as store fields.
func (e *Expense) fields() nocodb.Record {
	return nocodb.Record{
		FieldItem:   e.Item,
		FieldAmount: e.Amount.InexactFloat64(),
		FieldDate:   e.Date,
	}
}

// updateAllowList is the set of MAG columns ever transmitted in an update
// call. Everything else on the merged in-memory record (derived weekday, the
// expense aggregate, lookup metadata) stays read-only.
var updateAllowList = map[string]bool{
	FieldID:       true,
	FieldDate:     true,
	FieldNote:     true,
	FieldTithi:    true,
	FieldExercise: true,
}

// displayAllowList additionally exposes the store-side expense aggregate when
// rendering a MAG summary.
var displayAllowList = map[string]bool{
	FieldID:         true,
	FieldDate:       true,
	FieldNote:       true,
	FieldTithi:      true,
	FieldExercise:   true,
	FieldExpenseSum: true,
}

func filterFields(rec nocodb.Record, allowed map[string]bool) nocodb.Record {
	out := nocodb.Record{}
	for k, v := range rec {
		if allowed[k] {
			out[k] = v
		}
	}
	return out
}

// DisplayFields restricts a MAG record to the columns shown to the operator.
func DisplayFields(rec nocodb.Record) nocodb.Record {
	return filterFields(rec, displayAllowList)
}

// DayLogs reads and updates MAG entries. Listing is bounded to a single page;
// MAG is browsed a month at a time, never exhaustively.
type DayLogs struct {
	store RecordStore
}

// NewDayLogs creates the MAG view over a store client.
func NewDayLogs(store RecordStore) *DayLogs {
	return &DayLogs{store: store}
}

// FindByDate returns the MAG entry whose Date equals the ISO date, or
// ErrNoDayLog when none exists. First match wins if the table ever holds
// duplicates for a date.
func (d *DayLogs) FindByDate(ctx context.Context, isoDate string) (nocodb.Record, error) {
	where := fmt.Sprintf("(%s,eq,exactDate,%s)", FieldDate, isoDate)
	recs, err := d.store.List(ctx, where, "")
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrNoDayLog
	}
	return recs[0], nil
}

// List returns one page of MAG entries matching the raw filter expression.
func (d *DayLogs) List(ctx context.Context, rawWhere string) ([]nocodb.Record, error) {
	return d.store.List(ctx, rawWhere, "")
}

// Modify merges payload into the MAG entry for dateFilter and persists it.
// Payload keys overwrite existing keys; no other keys change; only
// allow-listed columns are transmitted. The returned record is the merged
// view restricted to the display allow-list.
func (d *DayLogs) Modify(ctx context.Context, dateFilter string, payload map[string]any) (nocodb.Record, error) {
	current, err := d.FindByDate(ctx, dateFilter)
	if err != nil {
		return nil, err
	}

	merged := nocodb.Record{}
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range payload {
		merged[k] = v
	}

	if _, err := d.store.Update(ctx, current.ID(), filterFields(merged, updateAllowList)); err != nil {
		return nil, err
	}
	return DisplayFields(merged), nil
}

// Expenses writes expense rows. Listing through the underlying client is
// exhaustive: every page is fetched.
type Expenses struct {
	store       RecordStore
	linkFieldID string
}

// NewExpenses creates the expense view over a store client. linkFieldID is
// the Expenses→MAG link column.
func NewExpenses(store RecordStore, linkFieldID string) *Expenses {
	return &Expenses{store: store, linkFieldID: linkFieldID}
}

// List returns all expenses matching the raw filter expression.
func (e *Expenses) List(ctx context.Context, rawWhere string) ([]nocodb.Record, error) {
	return e.store.List(ctx, rawWhere, "")
}

// AddResult describes the outcome of recording an expense.
type AddResult struct {
	Expense  nocodb.Record
	DayLogID string
	Linked   bool
	// LinkErr is set when the expense persisted but could not be linked.
	LinkErr error
}

// Book coordinates the two tables: every recorded expense should reference
// the MAG entry for its date, when one exists.
type Book struct {
	expenses *Expenses
	daylogs  *DayLogs
}

// NewBook creates the coordinator.
func NewBook(expenses *Expenses, daylogs *DayLogs) *Book {
	return &Book{expenses: expenses, daylogs: daylogs}
}

// DayLogs exposes the MAG view.
func (b *Book) DayLogs() *DayLogs { return b.daylogs }

// Expenses exposes the expense view.
func (b *Book) Expenses() *Expenses { return b.expenses }

// AddExpense creates the expense row and then links it to the same-date MAG
// entry. Linking is attempted only after a successful create. A missing MAG
// entry or a rejected link request leaves the expense persisted and is
// reported through AddResult rather than as an error: the primary write did
// succeed and is never rolled back.
func (b *Book) AddExpense(ctx context.Context, e Expense) (*AddResult, error) {
	created, err := b.expenses.store.Create(ctx, e.fields())
	if err != nil {
		return nil, err
	}
	res := &AddResult{Expense: created}

	daylog, err := b.daylogs.FindByDate(ctx, e.Date)
	if err != nil {
		if !errors.Is(err, ErrNoDayLog) {
			res.LinkErr = &LinkError{ExpenseID: created.ID(), Err: err}
		}
		return res, nil
	}
	res.DayLogID = daylog.ID()

	if err := b.expenses.store.LinkRecords(ctx, b.expenses.linkFieldID, created.ID(), []string{daylog.ID()}); err != nil {
		res.LinkErr = &LinkError{ExpenseID: created.ID(), DayLogID: daylog.ID(), Err: err}
		return res, nil
	}
	res.Linked = true
	return res, nil
}
