package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkurup/bujo-bot/internal/nocodb"
)

type linkCall struct {
	linkFieldID string
	recordID    string
	targetIDs   []string
}

type updateCall struct {
	id     string
	fields nocodb.Record
}

// mockStore is a scripted RecordStore.
type mockStore struct {
	listResult []nocodb.Record
	listErr    error
	listWheres []string

	createResult nocodb.Record
	createErr    error
	created      []nocodb.Record

	updates   []updateCall
	updateErr error

	links   []linkCall
	linkErr error
}

func (m *mockStore) Create(ctx context.Context, fields nocodb.Record) (nocodb.Record, error) {
	m.created = append(m.created, fields)
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.createResult, nil
}

func (m *mockStore) Update(ctx context.Context, id string, fields nocodb.Record) (nocodb.Record, error) {
	m.updates = append(m.updates, updateCall{id: id, fields: fields})
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return fields, nil
}

func (m *mockStore) List(ctx context.Context, rawWhere, sort string) ([]nocodb.Record, error) {
	m.listWheres = append(m.listWheres, rawWhere)
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.listResult, nil
}

func (m *mockStore) LinkRecords(ctx context.Context, linkFieldID, recordID string, targetIDs []string) error {
	m.links = append(m.links, linkCall{linkFieldID: linkFieldID, recordID: recordID, targetIDs: targetIDs})
	return m.linkErr
}

func amount(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestExpenseNormalize(t *testing.T) {
	now := time.Date(2025, 5, 9, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		exp      Expense
		wantErr  bool
		wantDate string
	}{
		{
			name:     "valid past date kept",
			exp:      Expense{Item: "mangoes", Amount: amount("40"), Date: "2025-05-01"},
			wantDate: "2025-05-01",
		},
		{
			name:     "today kept",
			exp:      Expense{Item: "mangoes", Amount: amount("40"), Date: "2025-05-09"},
			wantDate: "2025-05-09",
		},
		{
			name:     "future date clamped to today",
			exp:      Expense{Item: "mangoes", Amount: amount("40"), Date: "2025-06-01"},
			wantDate: "2025-05-09",
		},
		{
			name:    "missing item",
			exp:     Expense{Amount: amount("40"), Date: "2025-05-09"},
			wantErr: true,
		},
		{
			name:    "missing amount",
			exp:     Expense{Item: "mangoes", Date: "2025-05-09"},
			wantErr: true,
		},
		{
			name:    "missing date",
			exp:     Expense{Item: "mangoes", Amount: amount("40")},
			wantErr: true,
		},
		{
			name:    "malformed date",
			exp:     Expense{Item: "mangoes", Amount: amount("40"), Date: "09/05/2025"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.exp.Normalize(now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDate, tt.exp.Date)
		})
	}
}

func TestFindByDate(t *testing.T) {
	store := &mockStore{listResult: []nocodb.Record{
		{"Id": float64(7), "Date": "2025-05-09"},
		{"Id": float64(8), "Date": "2025-05-09"},
	}}
	daylogs := NewDayLogs(store)

	rec, err := daylogs.FindByDate(context.Background(), "2025-05-09")
	require.NoError(t, err)

	assert.Equal(t, "7", rec.ID(), "first match wins")
	require.Len(t, store.listWheres, 1)
	assert.Equal(t, "(Date,eq,exactDate,2025-05-09)", store.listWheres[0])
}

func TestFindByDate_Miss(t *testing.T) {
	daylogs := NewDayLogs(&mockStore{})

	_, err := daylogs.FindByDate(context.Background(), "2025-05-09")
	assert.ErrorIs(t, err, ErrNoDayLog)
}

func TestAddExpense_CreatesAndLinks(t *testing.T) {
	expStore := &mockStore{createResult: nocodb.Record{"Id": float64(42)}}
	magStore := &mockStore{listResult: []nocodb.Record{{"Id": float64(7), "Date": "2025-05-09"}}}
	book := NewBook(NewExpenses(expStore, "lnk1"), NewDayLogs(magStore))

	res, err := book.AddExpense(context.Background(), Expense{
		Item: "mangoes", Amount: amount("40"), Date: "2025-05-09",
	})
	require.NoError(t, err)

	require.Len(t, expStore.created, 1)
	assert.Equal(t, "mangoes", expStore.created[0].String(FieldItem))
	assert.Equal(t, "2025-05-09", expStore.created[0].String(FieldDate))

	assert.True(t, res.Linked)
	assert.Equal(t, "7", res.DayLogID)
	require.Len(t, expStore.links, 1, "exactly one link record")
	assert.Equal(t, linkCall{linkFieldID: "lnk1", recordID: "42", targetIDs: []string{"7"}}, expStore.links[0])
}

func TestAddExpense_NoDayLogLeavesExpenseUnlinked(t *testing.T) {
	expStore := &mockStore{createResult: nocodb.Record{"Id": float64(42)}}
	magStore := &mockStore{} // no MAG entry for the date
	book := NewBook(NewExpenses(expStore, "lnk1"), NewDayLogs(magStore))

	res, err := book.AddExpense(context.Background(), Expense{
		Item: "mangoes", Amount: amount("40"), Date: "2025-05-09",
	})
	require.NoError(t, err)

	assert.Len(t, expStore.created, 1, "expense still persisted")
	assert.Empty(t, expStore.links, "no link record created")
	assert.False(t, res.Linked)
	assert.NoError(t, res.LinkErr)
}

func TestAddExpense_LinkFailureDoesNotRollBack(t *testing.T) {
	expStore := &mockStore{
		createResult: nocodb.Record{"Id": float64(42)},
		linkErr:      errors.New("store rejected link"),
	}
	magStore := &mockStore{listResult: []nocodb.Record{{"Id": float64(7)}}}
	book := NewBook(NewExpenses(expStore, "lnk1"), NewDayLogs(magStore))

	res, err := book.AddExpense(context.Background(), Expense{
		Item: "mangoes", Amount: amount("40"), Date: "2025-05-09",
	})
	require.NoError(t, err, "link failure is reported, not raised")

	assert.False(t, res.Linked)
	var le *LinkError
	require.ErrorAs(t, res.LinkErr, &le)
	assert.Equal(t, "42", le.ExpenseID)
	assert.Equal(t, "7", le.DayLogID)
}

func TestAddExpense_CreateFailure(t *testing.T) {
	expStore := &mockStore{createErr: &nocodb.StatusError{Op: "create", Status: 500}}
	book := NewBook(NewExpenses(expStore, "lnk1"), NewDayLogs(&mockStore{}))

	_, err := book.AddExpense(context.Background(), Expense{
		Item: "mangoes", Amount: amount("40"), Date: "2025-05-09",
	})

	var se *nocodb.StatusError
	require.ErrorAs(t, err, &se)
	assert.Empty(t, expStore.links, "no link attempt after a failed create")
}

func TestModify_MergeRespectsAllowList(t *testing.T) {
	store := &mockStore{listResult: []nocodb.Record{{
		"Id":            float64(7),
		"Date":          "2025-03-01",
		"Day":           "Saturday",
		"Tithi":         "Dwitiya",
		"Note":          "existing note",
		"Exercise":      false,
		FieldExpenseSum: float64(120),
	}}}
	daylogs := NewDayLogs(store)

	view, err := daylogs.Modify(context.Background(), "2025-03-01", map[string]any{"Exercise": true})
	require.NoError(t, err)

	require.Len(t, store.updates, 1)
	sent := store.updates[0].fields
	assert.Equal(t, "7", store.updates[0].id)

	// Payload key overwrites, everything else from the original is intact.
	assert.Equal(t, true, sent.Bool(FieldExercise))
	assert.Equal(t, "existing note", sent.String(FieldNote))
	assert.Equal(t, "Dwitiya", sent.String(FieldTithi))
	assert.Equal(t, "2025-03-01", sent.String(FieldDate))

	// Fields outside the allow-list never reach the store.
	assert.NotContains(t, sent, "Day")
	assert.NotContains(t, sent, FieldExpenseSum)

	// The display view keeps the aggregate but not the derived weekday.
	assert.Contains(t, view, FieldExpenseSum)
	assert.NotContains(t, view, "Day")
	assert.Equal(t, true, view.Bool(FieldExercise))
}

func TestModify_NoEntryForDate(t *testing.T) {
	store := &mockStore{}
	daylogs := NewDayLogs(store)

	_, err := daylogs.Modify(context.Background(), "2025-03-01", map[string]any{"Exercise": true})
	assert.ErrorIs(t, err, ErrNoDayLog)
	assert.Empty(t, store.updates, "no update call issued")
}
