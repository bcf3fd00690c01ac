package registers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const registerColumns = `c.id, c.empleado_id, e.nombre, c.terminal, c.monto_apertura, c.monto_cierre,
	c.total_ventas, c.estado, c.abierta_en, c.cerrada_en`

func scanRegister(row pgx.Row) (*Register, error) {
	var r Register
	var status string
	err := row.Scan(&r.ID, &r.EmployeeID, &r.EmployeeName, &r.Terminal, &r.OpeningAmount, &r.ClosingAmount,
		&r.SalesTotal, &status, &r.OpenedAt, &r.ClosedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.Status = Status(status)
	return &r, nil
}

func (r *repository) Open(ctx context.Context, reg Register) (*Register, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO cajas (empleado_id, terminal, monto_apertura, estado)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		reg.EmployeeID, reg.Terminal, reg.OpeningAmount, string(StatusOpen)).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err, "cajas_terminal_abierta_idx") {
			return nil, ErrTerminalBusy
		}
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *repository) Close(ctx context.Context, id int64, closing decimal.Decimal) (*Register, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE cajas c SET
			estado = $2,
			monto_cierre = $3,
			cerrada_en = NOW(),
			total_ventas = (
				SELECT COALESCE(SUM(f.total), 0) FROM facturas f
				WHERE f.estado = 'pagado' AND f.fecha >= c.abierta_en AND f.fecha <= NOW()
			)
		WHERE c.id = $1 AND c.estado = $4`,
		id, string(StatusClosed), closing, string(StatusOpen))
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		existing, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing.Status == StatusClosed {
			return nil, ErrAlreadyClosed
		}
		return nil, fmt.Errorf("close register %d: no rows updated", id)
	}
	return r.Get(ctx, id)
}

func (r *repository) Get(ctx context.Context, id int64) (*Register, error) {
	return scanRegister(r.pool.QueryRow(ctx, `SELECT `+registerColumns+`
		FROM cajas c JOIN empleados e ON e.id = c.empleado_id
		WHERE c.id = $1`, id))
}

func (r *repository) List(ctx context.Context, req ListRequest) ([]Register, int, error) {
	where := ""
	var args []any
	if req.Status != "" {
		where = "WHERE c.estado = $1"
		args = append(args, string(req.Status))
	}
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM cajas c "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf(`SELECT %s FROM cajas c JOIN empleados e ON e.id = c.empleado_id %s
		ORDER BY c.abierta_en DESC LIMIT $%d OFFSET $%d`,
		registerColumns, where, len(args)+1, len(args)+2)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Register, 0)
	for rows.Next() {
		reg, err := scanRegister(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *reg)
	}
	return out, total, rows.Err()
}
