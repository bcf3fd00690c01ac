package purchases

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pos/internal/products"
)

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const purchaseColumns = `c.id, c.proveedor_id, p.razon_social, c.numero_documento, c.fecha, c.total, c.created_at`

func scanPurchase(row pgx.Row) (*Purchase, error) {
	var p Purchase
	if err := row.Scan(&p.ID, &p.SupplierID, &p.SupplierName, &p.DocumentNumber, &p.Date, &p.Total, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (*Purchase, error) {
	p, err := scanPurchase(r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+`
		FROM compras c JOIN proveedores p ON p.id = c.proveedor_id
		WHERE c.id = $1`, id))
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, compra_id, producto_id, cantidad, costo
		FROM compra_detalles WHERE compra_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.PurchaseID, &l.ProductID, &l.Quantity, &l.Cost); err != nil {
			return nil, err
		}
		p.Lines = append(p.Lines, l)
	}
	return p, rows.Err()
}

func (r *pgRepository) List(ctx context.Context, req ListPurchasesRequest) ([]Purchase, int, error) {
	where := ""
	var args []any
	if req.SupplierID > 0 {
		where = "WHERE c.proveedor_id = $1"
		args = append(args, req.SupplierID)
	}
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM compras c "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT %s FROM compras c JOIN proveedores p ON p.id = c.proveedor_id %s
		ORDER BY c.fecha DESC, c.id DESC LIMIT $%d OFFSET $%d`,
		purchaseColumns, where, len(args)+1, len(args)+2)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Purchase, 0)
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

func (t *txRepo) InsertPurchase(ctx context.Context, p *Purchase) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO compras (proveedor_id, numero_documento, fecha, total)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		p.SupplierID, p.DocumentNumber, p.Date, p.Total,
	).Scan(&p.ID, &p.CreatedAt)
	switch {
	case err == nil:
		return nil
	case db.IsUniqueViolation(err, "compras_documento_key"):
		return ErrDuplicateDoc
	case db.IsForeignKeyViolation(err):
		return ErrUnknownReference
	}
	return err
}

func (t *txRepo) InsertLine(ctx context.Context, l *Line) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO compra_detalles (compra_id, producto_id, cantidad, costo)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		l.PurchaseID, l.ProductID, l.Quantity, l.Cost,
	).Scan(&l.ID)
	if db.IsForeignKeyViolation(err) {
		return ErrUnknownReference
	}
	return err
}

func (t *txRepo) AddStock(ctx context.Context, productID int64, qty int) error {
	return products.Restock(ctx, t.tx, productID, qty)
}
