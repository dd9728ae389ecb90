package categories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/molda-invest/api/internal/platform/db"
)

// Repository encapsulates DB operations for categories.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, ownerID, id int64) (Category, error)
	List(ctx context.Context, ownerID int64) ([]Category, error)
	ListByType(ctx context.Context, ownerID int64, t TransactionType) ([]Category, error)
	Insert(ctx context.Context, c Category) (Category, error)
	Stats(ctx context.Context, ownerID int64) ([]CategoryStats, error)
}

// TxRepository exposes methods available within a transaction. Dependent
// counts are computed here so delete/type-change checks cannot race with
// concurrent transaction creation.
type TxRepository interface {
	Get(ctx context.Context, ownerID, id int64) (Category, error)
	CountByOwner(ctx context.Context, ownerID int64) (int, error)
	CountTransactions(ctx context.Context, ownerID, categoryID int64) (int, error)
	InsertBatch(ctx context.Context, ownerID int64, catalog []DefaultCategory) error
	Update(ctx context.Context, c Category) error
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

const categoryColumns = `id, user_id, name, icon, color, type, budget::text, created_at, updated_at`

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	var budget *string
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Icon, &c.Color, &c.Type, &budget, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Category{}, err
	}
	if budget != nil {
		b, err := decimal.NewFromString(*budget)
		if err != nil {
			return Category{}, err
		}
		c.Budget = &b
	}
	return c, nil
}

func (r *repository) Get(ctx context.Context, ownerID, id int64) (Category, error) {
	row := r.db.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id=$1 AND user_id=$2`, id, ownerID)
	c, err := scanCategory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrCategoryNotFound
	}
	return c, err
}

func (r *repository) List(ctx context.Context, ownerID int64) ([]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT `+categoryColumns+` FROM categories WHERE user_id=$1 ORDER BY name ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	return collectCategories(rows)
}

func (r *repository) ListByType(ctx context.Context, ownerID int64, t TransactionType) ([]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT `+categoryColumns+` FROM categories WHERE user_id=$1 AND type=$2 ORDER BY name ASC`, ownerID, t)
	if err != nil {
		return nil, err
	}
	return collectCategories(rows)
}

func collectCategories(rows pgx.Rows) ([]Category, error) {
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) Insert(ctx context.Context, c Category) (Category, error) {
	var budget *string
	if c.Budget != nil {
		s := c.Budget.String()
		budget = &s
	}
	row := r.db.QueryRow(ctx, `INSERT INTO categories (user_id, name, icon, color, type, budget)
VALUES ($1,$2,$3,$4,$5,$6::numeric) RETURNING id, created_at, updated_at`, c.OwnerID, c.Name, c.Icon, c.Color, c.Type, budget)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Category{}, err
	}
	return c, nil
}

func (r *repository) Stats(ctx context.Context, ownerID int64) ([]CategoryStats, error) {
	rows, err := r.db.Query(ctx, `SELECT c.id, c.name, c.icon, c.color, c.type, COUNT(t.id)
FROM categories c
LEFT JOIN transactions t ON t.category_id = c.id
WHERE c.user_id=$1
GROUP BY c.id, c.name, c.icon, c.color, c.type
ORDER BY c.name ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CategoryStats
	for rows.Next() {
		var s CategoryStats
		if err := rows.Scan(&s.ID, &s.Name, &s.Icon, &s.Color, &s.Type, &s.TransactionCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) CountByOwner(ctx context.Context, ownerID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM categories WHERE user_id=$1`, ownerID).Scan(&count)
	return count, err
}

func (r *repository) CountTransactions(ctx context.Context, ownerID, categoryID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE user_id=$1 AND category_id=$2`, ownerID, categoryID).Scan(&count)
	return count, err
}

func (r *repository) InsertBatch(ctx context.Context, ownerID int64, catalog []DefaultCategory) error {
	for _, entry := range catalog {
		if _, err := r.db.Exec(ctx, `INSERT INTO categories (user_id, name, icon, color, type)
VALUES ($1,$2,$3,$4,$5)`, ownerID, entry.Name, entry.Icon, entry.Color, entry.Type); err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) Update(ctx context.Context, c Category) error {
	var budget *string
	if c.Budget != nil {
		s := c.Budget.String()
		budget = &s
	}
	tag, err := r.db.Exec(ctx, `UPDATE categories SET name=$1, icon=$2, color=$3, type=$4, budget=$5::numeric, updated_at=NOW()
WHERE id=$6 AND user_id=$7`, c.Name, c.Icon, c.Color, c.Type, budget, c.ID, c.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, ownerID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id=$1 AND user_id=$2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
