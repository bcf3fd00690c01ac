package suppliers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const supplierColumns = `id, tipo_rif, numero_rif, razon_social, correo, telefono, direccion, created_at, updated_at`

var updatableColumns = []string{"razon_social", "correo", "telefono", "direccion"}

func scanSupplier(row pgx.Row) (*Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.RIFType, &s.RIFNumber, &s.LegalName, &s.Email, &s.Phone, &s.Address, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *repository) List(ctx context.Context, search string, limit, offset int) ([]Supplier, int, error) {
	where := ""
	var args []any
	if s := strings.TrimSpace(search); s != "" {
		where = `WHERE razon_social ILIKE $1 OR numero_rif ILIKE $1`
		args = append(args, "%"+s+"%")
	}
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM proveedores "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT %s FROM proveedores %s ORDER BY razon_social LIMIT $%d OFFSET $%d`,
		supplierColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Supplier, 0)
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *s)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Supplier, error) {
	return scanSupplier(r.pool.QueryRow(ctx, `SELECT `+supplierColumns+` FROM proveedores WHERE id = $1`, id))
}

func (r *repository) Create(ctx context.Context, s Supplier) (*Supplier, error) {
	created, err := scanSupplier(r.pool.QueryRow(ctx, `
		INSERT INTO proveedores (tipo_rif, numero_rif, razon_social, correo, telefono, direccion)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+supplierColumns,
		s.RIFType, s.RIFNumber, s.LegalName, s.Email, s.Phone, s.Address))
	if err != nil {
		if db.IsUniqueViolation(err, "proveedores_rif_key") {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	query := "UPDATE proveedores SET updated_at = NOW()"
	var args []any
	for _, col := range updatableColumns {
		if v, ok := updates[col]; ok {
			args = append(args, v)
			query += fmt.Sprintf(", %s = $%d", col, len(args))
		}
	}
	args = append(args, id)
	query += fmt.Sprintf(" WHERE id = $%d", len(args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
