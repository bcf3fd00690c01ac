package numbering

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

// Series identifies a numbering row in the numeracion table.
type Series string

const (
	SeriesInvoice Series = "factura"
	SeriesControl Series = "control"
)

// ErrUnknownSeries is returned when the numeracion row is missing.
var ErrUnknownSeries = errors.New("numbering: unknown series")

// Pair is the invoice/control number couple assigned to one invoice.
type Pair struct {
	InvoiceNumber string `json:"numero_factura"`
	ControlNumber string `json:"numero_control"`
}

// Sequencer hands out document numbers. Next must run inside the caller's
// transaction: the numeracion row stays locked until that transaction ends,
// so concurrent cashiers queue instead of reading the same previous value.
type Sequencer struct {
	db db.DBTX
}

// NewSequencer constructs a sequencer reading through q (pool or tx).
func NewSequencer(q db.DBTX) *Sequencer {
	return &Sequencer{db: q}
}

// Next reserves the next number of series using tx.
func (s *Sequencer) Next(ctx context.Context, tx db.DBTX, series Series) (string, error) {
	var prev string
	err := tx.QueryRow(ctx, `SELECT ultimo FROM numeracion WHERE serie = $1 FOR UPDATE`, string(series)).Scan(&prev)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", ErrUnknownSeries, series)
		}
		return "", fmt.Errorf("lock series %s: %w", series, err)
	}
	next, err := advance(series, prev)
	if err != nil {
		return "", err
	}
	if _, err := tx.Exec(ctx, `UPDATE numeracion SET ultimo = $1 WHERE serie = $2`, next, string(series)); err != nil {
		return "", fmt.Errorf("store series %s: %w", series, err)
	}
	return next, nil
}

// NextPair reserves both an invoice and a control number using tx.
func (s *Sequencer) NextPair(ctx context.Context, tx db.DBTX) (Pair, error) {
	invoice, err := s.Next(ctx, tx, SeriesInvoice)
	if err != nil {
		return Pair{}, err
	}
	control, err := s.Next(ctx, tx, SeriesControl)
	if err != nil {
		return Pair{}, err
	}
	return Pair{InvoiceNumber: invoice, ControlNumber: control}, nil
}

// Peek previews the numbers the next invoice would receive without
// reserving them.
func (s *Sequencer) Peek(ctx context.Context) (Pair, error) {
	rows, err := s.db.Query(ctx, `SELECT serie, ultimo FROM numeracion WHERE serie = ANY($1)`,
		[]string{string(SeriesInvoice), string(SeriesControl)})
	if err != nil {
		return Pair{}, err
	}
	defer rows.Close()

	last := map[Series]string{}
	for rows.Next() {
		var serie, ultimo string
		if err := rows.Scan(&serie, &ultimo); err != nil {
			return Pair{}, err
		}
		last[Series(serie)] = ultimo
	}
	if err := rows.Err(); err != nil {
		return Pair{}, err
	}

	var pair Pair
	if pair.InvoiceNumber, err = advance(SeriesInvoice, last[SeriesInvoice]); err != nil {
		return Pair{}, err
	}
	if pair.ControlNumber, err = advance(SeriesControl, last[SeriesControl]); err != nil {
		return Pair{}, err
	}
	return pair, nil
}

func advance(series Series, prev string) (string, error) {
	switch series {
	case SeriesInvoice:
		return NextInvoiceNumber(prev)
	case SeriesControl:
		return NextControlNumber(prev)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownSeries, series)
	}
}
