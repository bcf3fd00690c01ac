package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context, req ListClientsRequest) ([]Client, int, error)
	Get(ctx context.Context, id int64) (*Client, error)
	GetByRIF(ctx context.Context, rifType, rifNumber string) (*Client, error)
	Create(ctx context.Context, client Client) (*Client, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const clientColumns = `id, tipo_rif, numero_rif, nombre, correo, operador, telefono, direccion, created_at, updated_at`

// updatableColumns whitelists the keys Update accepts.
var updatableColumns = []string{"nombre", "correo", "operador", "telefono", "direccion"}

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.RIFType, &c.RIFNumber, &c.Name, &c.Email, &c.PhoneCarrier,
		&c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, req ListClientsRequest) ([]Client, int, error) {
	where := ""
	var args []any
	if s := strings.TrimSpace(req.Search); s != "" {
		where = `WHERE nombre ILIKE $1 OR numero_rif ILIKE $1 OR (tipo_rif || '-' || numero_rif) ILIKE $1`
		args = append(args, "%"+s+"%")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM clientes "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM clientes %s ORDER BY nombre LIMIT $%d OFFSET $%d`,
		clientColumns, where, len(args)+1, len(args)+2)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	clients := make([]Client, 0)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		clients = append(clients, *c)
	}
	return clients, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Client, error) {
	return scanClient(r.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clientes WHERE id = $1`, id))
}

func (r *repository) GetByRIF(ctx context.Context, rifType, rifNumber string) (*Client, error) {
	return scanClient(r.db.QueryRow(ctx,
		`SELECT `+clientColumns+` FROM clientes WHERE tipo_rif = $1 AND numero_rif = $2`, rifType, rifNumber))
}

func (r *repository) Create(ctx context.Context, client Client) (*Client, error) {
	created, err := scanClient(r.db.QueryRow(ctx, `
		INSERT INTO clientes (tipo_rif, numero_rif, nombre, correo, operador, telefono, direccion)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+clientColumns,
		client.RIFType, client.RIFNumber, client.Name, client.Email, client.PhoneCarrier, client.Phone, client.Address))
	if err != nil {
		if db.IsUniqueViolation(err, "clientes_rif_key") {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	query := "UPDATE clientes SET updated_at = NOW()"
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

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
