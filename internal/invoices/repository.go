package invoices

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/numbering"
	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/products"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Repository reads invoices and opens write transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	PaymentMethods(ctx context.Context) ([]PaymentMethod, error)
	PeekNumbers(ctx context.Context) (numbering.Pair, error)
}

// TxRepository exposes the operations that run inside one invoice transaction.
type TxRepository interface {
	ClaimIdempotencyKey(ctx context.Context, key string) error
	NextNumbers(ctx context.Context) (numbering.Pair, error)
	TakeStock(ctx context.Context, productID int64, qty int) (decimal.Decimal, error)
	ReturnStock(ctx context.Context, productID int64, qty int) error
	PaymentMethodActive(ctx context.Context, methodID int64) (bool, error)
	InsertInvoice(ctx context.Context, inv *Invoice) error
	InsertLine(ctx context.Context, line *Line) error
	InsertPayment(ctx context.Context, p *Payment) error
	LockInvoice(ctx context.Context, id int64) (*Invoice, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
}

type pgRepository struct {
	pool      *pgxpool.Pool
	sequencer *numbering.Sequencer
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool, sequencer: numbering.NewSequencer(pool)}
}

type txRepo struct {
	tx        pgx.Tx
	sequencer *numbering.Sequencer
}

// WithTx runs fn in a read-committed transaction; numbering rows are
// serialised with SELECT ... FOR UPDATE instead of snapshot isolation.
func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxIso(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, sequencer: r.sequencer})
	})
}

const invoiceColumns = `f.id, f.numero_factura, f.numero_control, f.cliente_id, c.nombre, f.fecha,
	f.subtotal, f.impuesto, f.total, f.tasa_impuesto, f.estado,
	COALESCE((SELECT SUM(p.monto) FROM pagos p WHERE p.factura_id = f.id), 0),
	f.created_at, f.updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var status string
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.ControlNumber, &inv.ClientID, &inv.ClientName, &inv.Date,
		&inv.Subtotal, &inv.Tax, &inv.Total, &inv.TaxRate, &status, &inv.Paid, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	inv.Status = Status(status)
	return &inv, nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+`
		FROM facturas f JOIN clientes c ON c.id = f.cliente_id
		WHERE f.id = $1`, id))
	if err != nil {
		return nil, err
	}
	if inv.Lines, err = loadLines(ctx, r.pool, id); err != nil {
		return nil, err
	}
	if inv.Payments, err = loadPayments(ctx, r.pool, id); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *pgRepository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	var conds []string
	var args []any
	if req.Status != "" {
		args = append(args, string(req.Status))
		conds = append(conds, fmt.Sprintf("f.estado = $%d", len(args)))
	}
	if req.ClientID > 0 {
		args = append(args, req.ClientID)
		conds = append(conds, fmt.Sprintf("f.cliente_id = $%d", len(args)))
	}
	if req.From != nil {
		args = append(args, *req.From)
		conds = append(conds, fmt.Sprintf("f.fecha >= $%d", len(args)))
	}
	if req.To != nil {
		args = append(args, *req.To)
		conds = append(conds, fmt.Sprintf("f.fecha < $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM facturas f "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM facturas f JOIN clientes c ON c.id = f.cliente_id %s
		ORDER BY f.fecha DESC, f.id DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, where, len(args)+1, len(args)+2)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *inv)
	}
	return items, total, rows.Err()
}

func (r *pgRepository) PaymentMethods(ctx context.Context) ([]PaymentMethod, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, nombre, activo FROM metodos_pago ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	methods := make([]PaymentMethod, 0)
	for rows.Next() {
		var m PaymentMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.Active); err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

func (r *pgRepository) PeekNumbers(ctx context.Context) (numbering.Pair, error) {
	return r.sequencer.Peek(ctx)
}

func loadLines(ctx context.Context, q db.DBTX, invoiceID int64) ([]Line, error) {
	rows, err := q.Query(ctx, `
		SELECT d.id, d.factura_id, d.producto_id, p.codigo, p.descripcion, d.cantidad, d.precio
		FROM factura_detalles d JOIN productos p ON p.id = d.producto_id
		WHERE d.factura_id = $1
		ORDER BY d.id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ProductID, &l.ProductCode, &l.Description, &l.Quantity, &l.Price); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func loadPayments(ctx context.Context, q db.DBTX, invoiceID int64) ([]Payment, error) {
	rows, err := q.Query(ctx, `
		SELECT p.id, p.factura_id, p.metodo_pago_id, m.nombre, p.monto, p.referencia, p.created_at
		FROM pagos p JOIN metodos_pago m ON m.id = p.metodo_pago_id
		WHERE p.factura_id = $1
		ORDER BY p.id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.MethodID, &p.MethodName, &p.Amount, &p.Reference, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ============================================================================
// TRANSACTIONAL OPERATIONS
// ============================================================================

func (t *txRepo) ClaimIdempotencyKey(ctx context.Context, key string) error {
	err := shared.InsertIdempotencyKey(ctx, t.tx, key, IdempotencyModule)
	if errors.Is(err, shared.ErrIdempotencyConflict) {
		return ErrDuplicateRequest
	}
	return err
}

func (t *txRepo) NextNumbers(ctx context.Context) (numbering.Pair, error) {
	return t.sequencer.NextPair(ctx, t.tx)
}

func (t *txRepo) TakeStock(ctx context.Context, productID int64, qty int) (decimal.Decimal, error) {
	return products.Take(ctx, t.tx, productID, qty)
}

func (t *txRepo) ReturnStock(ctx context.Context, productID int64, qty int) error {
	return products.Restock(ctx, t.tx, productID, qty)
}

func (t *txRepo) PaymentMethodActive(ctx context.Context, methodID int64) (bool, error) {
	var active bool
	err := t.tx.QueryRow(ctx, `SELECT activo FROM metodos_pago WHERE id = $1`, methodID).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return active, err
}

func (t *txRepo) InsertInvoice(ctx context.Context, inv *Invoice) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO facturas (numero_factura, numero_control, cliente_id, subtotal, impuesto, total, tasa_impuesto, estado)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, fecha, created_at, updated_at`,
		inv.InvoiceNumber, inv.ControlNumber, inv.ClientID, inv.Subtotal, inv.Tax, inv.Total, inv.TaxRate, string(inv.Status),
	).Scan(&inv.ID, &inv.Date, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "facturas_numero_factura_key") || db.IsUniqueViolation(err, "facturas_numero_control_key") {
			return fmt.Errorf("invoice number collision %s/%s: %w", inv.InvoiceNumber, inv.ControlNumber, err)
		}
		if db.IsForeignKeyViolation(err) {
			return ErrUnknownClient
		}
		return err
	}
	return nil
}

func (t *txRepo) InsertLine(ctx context.Context, line *Line) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO factura_detalles (factura_id, producto_id, cantidad, precio)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		line.InvoiceID, line.ProductID, line.Quantity, line.Price,
	).Scan(&line.ID)
}

func (t *txRepo) InsertPayment(ctx context.Context, p *Payment) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO pagos (factura_id, metodo_pago_id, monto, referencia)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		p.InvoiceID, p.MethodID, p.Amount, p.Reference,
	).Scan(&p.ID, &p.CreatedAt)
}

// LockInvoice loads an invoice with its lines and paid amount, holding a
// row lock on the header until the transaction ends.
func (t *txRepo) LockInvoice(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := scanInvoice(t.tx.QueryRow(ctx, `SELECT `+invoiceColumns+`
		FROM facturas f JOIN clientes c ON c.id = f.cliente_id
		WHERE f.id = $1
		FOR UPDATE OF f`, id))
	if err != nil {
		return nil, err
	}
	if inv.Lines, err = loadLines(ctx, t.tx, id); err != nil {
		return nil, err
	}
	return inv, nil
}

func (t *txRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE facturas SET estado = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
