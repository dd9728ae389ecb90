package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/molda-invest/api/internal/platform/db"
)

// Repository encapsulates DB operations for accounts.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, ownerID, id int64) (Account, error)
	List(ctx context.Context, ownerID int64) ([]Account, error)
	Insert(ctx context.Context, a Account) (Account, error)
	Update(ctx context.Context, a Account) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	Get(ctx context.Context, ownerID, id int64) (Account, error)
	CountTransactions(ctx context.Context, ownerID, accountID int64) (int, error)
	Delete(ctx context.Context, ownerID, id int64) error
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx})
	})
}

const accountColumns = `id, user_id, name, color, icon, balance::text, status, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	var balance string
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.Color, &a.Icon, &balance, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Account{}, err
	}
	a.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Get(ctx context.Context, ownerID, id int64) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1 AND user_id=$2`, id, ownerID)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	return a, err
}

func (r *repository) List(ctx context.Context, ownerID int64) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id=$1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) Insert(ctx context.Context, a Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (user_id, name, color, icon, balance, status)
VALUES ($1,$2,$3,$4,$5::numeric,$6) RETURNING id, created_at, updated_at`,
		a.OwnerID, a.Name, a.Color, a.Icon, a.Balance.String(), a.Status)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Update(ctx context.Context, a Account) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET name=$1, color=$2, icon=$3, status=$4, updated_at=NOW()
WHERE id=$5 AND user_id=$6`, a.Name, a.Color, a.Icon, a.Status, a.ID, a.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *repository) CountTransactions(ctx context.Context, ownerID, accountID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE user_id=$1 AND account_id=$2`, ownerID, accountID).Scan(&count)
	return count, err
}

func (r *repository) Delete(ctx context.Context, ownerID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id=$1 AND user_id=$2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
