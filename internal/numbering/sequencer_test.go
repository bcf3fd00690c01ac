package numbering

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDB keeps the numeracion table in memory and records statements.
type fakeDB struct {
	rows       map[string]string
	statements []string
}

func newFakeDB() *fakeDB {
	return &fakeDB{rows: map[string]string{
		string(SeriesInvoice): InvoiceBaseline,
		string(SeriesControl): ControlBaseline,
	}}
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.statements = append(f.statements, sql)
	if strings.HasPrefix(sql, "UPDATE numeracion") {
		f.rows[args[1].(string)] = args[0].(string)
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.statements = append(f.statements, sql)
	v, ok := f.rows[args[0].(string)]
	return fakeRow{value: v, ok: ok}
}

type fakeRow struct {
	value string
	ok    bool
}

func (r fakeRow) Scan(dest ...any) error {
	if !r.ok {
		return pgx.ErrNoRows
	}
	*dest[0].(*string) = r.value
	return nil
}

func TestSequencerNextPairLocksAndAdvances(t *testing.T) {
	fake := newFakeDB()
	seq := NewSequencer(fake)

	first, err := seq.NextPair(context.Background(), fake)
	require.NoError(t, err)
	assert.Equal(t, Pair{InvoiceNumber: "0000001", ControlNumber: "00-000001"}, first)

	second, err := seq.NextPair(context.Background(), fake)
	require.NoError(t, err)
	assert.Equal(t, Pair{InvoiceNumber: "0000002", ControlNumber: "00-000002"}, second)

	assert.Contains(t, fake.statements[0], "FOR UPDATE")
}

func TestSequencerUnknownSeries(t *testing.T) {
	fake := newFakeDB()
	delete(fake.rows, string(SeriesControl))
	seq := NewSequencer(fake)

	_, err := seq.Next(context.Background(), fake, SeriesControl)
	require.ErrorIs(t, err, ErrUnknownSeries)
}

func TestSequencerRejectsCorruptStoredValue(t *testing.T) {
	fake := newFakeDB()
	fake.rows[string(SeriesControl)] = "XX-1"
	seq := NewSequencer(fake)

	_, err := seq.Next(context.Background(), fake, SeriesControl)
	require.ErrorIs(t, err, ErrMalformed)
}
