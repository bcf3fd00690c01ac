package products

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context, req ListProductsRequest) ([]Product, int, error)
	Get(ctx context.Context, id int64) (*Product, error)
	Create(ctx context.Context, p Product) (*Product, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	AdjustPrices(ctx context.Context, factor decimal.Decimal) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, codigo, descripcion, cantidad, precio, created_at, updated_at`

var updatableColumns = []string{"codigo", "descripcion", "cantidad", "precio"}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.Code, &p.Description, &p.Quantity, &p.Price, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) List(ctx context.Context, req ListProductsRequest) ([]Product, int, error) {
	where := ""
	var args []any
	if s := strings.TrimSpace(req.Search); s != "" {
		where = `WHERE codigo ILIKE $1 OR descripcion ILIKE $1`
		args = append(args, "%"+s+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM productos "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM productos %s ORDER BY descripcion LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)+1, len(args)+2)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *p)
	}
	return items, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM productos WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, p Product) (*Product, error) {
	created, err := scanProduct(r.pool.QueryRow(ctx, `
		INSERT INTO productos (codigo, descripcion, cantidad, precio)
		VALUES ($1, $2, $3, $4)
		RETURNING `+productColumns,
		p.Code, p.Description, p.Quantity, p.Price))
	if err != nil {
		if db.IsUniqueViolation(err, "productos_codigo_key") {
			return nil, ErrCodeExists
		}
		return nil, err
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	query := "UPDATE productos SET updated_at = NOW()"
	var args []any
	for _, col := range updatableColumns {
		v, ok := updates[col]
		if !ok {
			continue
		}
		args = append(args, v)
		query += fmt.Sprintf(", %s = $%d", col, len(args))
	}
	args = append(args, id)
	query += fmt.Sprintf(" WHERE id = $%d", len(args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if db.IsUniqueViolation(err, "productos_codigo_key") {
			return ErrCodeExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) AdjustPrices(ctx context.Context, factor decimal.Decimal) (int64, error) {
	var affected int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE productos SET precio = ROUND(precio * $1, 2), updated_at = NOW()`, factor)
		if err != nil {
			return err
		}
		affected = tag.RowsAffected()
		return nil
	})
	return affected, err
}

// LockOrder returns the positions of ids sorted by product id. Callers that
// touch several product rows in one transaction walk them in this order so
// concurrent sales, voids and purchases lock rows the same way.
func LockOrder(ids []int64) []int {
	order := make([]int, len(ids))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(ids[a], ids[b]) })
	return order
}

// Take decrements stock for a sale on q and returns the current unit price.
// It fails with ErrInsufficientStock when fewer than qty units remain.
func Take(ctx context.Context, q db.DBTX, productID int64, qty int) (decimal.Decimal, error) {
	var price decimal.Decimal
	err := q.QueryRow(ctx, `
		UPDATE productos SET cantidad = cantidad - $2, updated_at = NOW()
		WHERE id = $1 AND cantidad >= $2
		RETURNING precio`, productID, qty).Scan(&price)
	if err == nil {
		return price, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, err
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM productos WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return decimal.Zero, err
	}
	if !exists {
		return decimal.Zero, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	return decimal.Zero, fmt.Errorf("product %d: %w", productID, ErrInsufficientStock)
}

// Restock returns qty units of a product to stock on q.
func Restock(ctx context.Context, q db.DBTX, productID int64, qty int) error {
	tag, err := q.Exec(ctx,
		`UPDATE productos SET cantidad = cantidad + $2, updated_at = NOW() WHERE id = $1`, productID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	return nil
}
