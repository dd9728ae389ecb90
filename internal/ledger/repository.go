package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/molda-invest/api/internal/categories"
	"github.com/molda-invest/api/internal/platform/db"
)

// Repository encapsulates DB operations for transactions.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, ownerID, id int64) (Transaction, error)
	List(ctx context.Context, ownerID int64, filter ListFilter) ([]Transaction, error)
	Count(ctx context.Context, ownerID int64, filter ListFilter) (int, error)
	Aggregate(ctx context.Context, ownerID int64, t categories.TransactionType, filter ListFilter) (decimal.Decimal, int, error)
}

// TxRepository exposes methods available within a transaction. ApplyDelta
// is the single choke point through which every balance mutation flows;
// it is deliberately reachable only inside WithTx so the balance update
// and the row mutation always commit or abort as a pair.
type TxRepository interface {
	GetAccountForUpdate(ctx context.Context, ownerID, accountID int64) (AccountState, error)
	ApplyDelta(ctx context.Context, accountID int64, delta decimal.Decimal) (decimal.Decimal, error)
	Insert(ctx context.Context, t Transaction) (Transaction, error)
	Get(ctx context.Context, ownerID, id int64) (Transaction, error)
	Update(ctx context.Context, t Transaction) error
	Delete(ctx context.Context, ownerID, id int64) error
	FindCategoryByType(ctx context.Context, ownerID int64, t categories.TransactionType) (int64, error)
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

const transactionColumns = `id, reference_number, user_id, account_id, category_id, description,
amount::text, type, status, date, balance_before::text, balance_after::text, notes, tags, created_at, updated_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	var amount, before, after string
	err := row.Scan(&t.ID, &t.ReferenceNumber, &t.OwnerID, &t.AccountID, &t.CategoryID, &t.Description,
		&amount, &t.Type, &t.Status, &t.Date, &before, &after, &t.Notes, &t.Tags, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Transaction{}, err
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return Transaction{}, err
	}
	if t.BalanceBefore, err = decimal.NewFromString(before); err != nil {
		return Transaction{}, err
	}
	if t.BalanceAfter, err = decimal.NewFromString(after); err != nil {
		return Transaction{}, err
	}
	return t, nil
}

func (r *repository) Get(ctx context.Context, ownerID, id int64) (Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id=$1 AND user_id=$2`, id, ownerID)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrTransactionNotFound
	}
	return t, err
}

func listWhere(ownerID int64, filter ListFilter) (string, []any) {
	conditions := []string{"user_id = $1"}
	args := []any{ownerID}
	argPos := 2

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argPos))
		args = append(args, filter.Type)
		argPos++
	}
	if filter.AccountID != 0 {
		conditions = append(conditions, fmt.Sprintf("account_id = $%d", argPos))
		args = append(args, filter.AccountID)
		argPos++
	}
	if filter.CategoryID != 0 {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argPos))
		args = append(args, filter.CategoryID)
		argPos++
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", argPos))
		args = append(args, *filter.DateFrom)
		argPos++
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", argPos))
		args = append(args, *filter.DateTo)
		argPos++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("description ILIKE $%d", argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	whereClause := conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}
	return whereClause, args
}

func (r *repository) List(ctx context.Context, ownerID int64, filter ListFilter) ([]Transaction, error) {
	whereClause, args := listWhere(ownerID, filter)

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + whereClause +
		` ORDER BY date DESC, created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, filter.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) Count(ctx context.Context, ownerID int64, filter ListFilter) (int, error) {
	whereClause, args := listWhere(ownerID, filter)
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE `+whereClause, args...).Scan(&n)
	return n, err
}

func (r *repository) Aggregate(ctx context.Context, ownerID int64, t categories.TransactionType, filter ListFilter) (decimal.Decimal, int, error) {
	conditions := []string{"user_id = $1", "type = $2"}
	args := []any{ownerID, t}
	argPos := 3
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", argPos))
		args = append(args, *filter.DateFrom)
		argPos++
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", argPos))
		args = append(args, *filter.DateTo)
		argPos++
	}
	whereClause := conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var sum string
	var count int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount),0)::text, COUNT(*) FROM transactions WHERE `+whereClause, args...).Scan(&sum, &count)
	if err != nil {
		return decimal.Decimal{}, 0, err
	}
	total, err := decimal.NewFromString(sum)
	if err != nil {
		return decimal.Decimal{}, 0, err
	}
	return total, count, nil
}

func (r *repository) GetAccountForUpdate(ctx context.Context, ownerID, accountID int64) (AccountState, error) {
	var state AccountState
	var balance string
	err := r.db.QueryRow(ctx, `SELECT id, user_id, balance::text, status FROM accounts
WHERE id=$1 AND user_id=$2 FOR UPDATE`, accountID, ownerID).
		Scan(&state.ID, &state.OwnerID, &balance, &state.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountState{}, ErrAccountNotFound
		}
		return AccountState{}, err
	}
	state.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return AccountState{}, err
	}
	return state, nil
}

func (r *repository) ApplyDelta(ctx context.Context, accountID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance string
	err := r.db.QueryRow(ctx, `UPDATE accounts SET balance = balance + $1::numeric, updated_at=NOW()
WHERE id=$2 RETURNING balance::text`, delta.String(), accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Decimal{}, ErrAccountNotFound
		}
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(balance)
}

func (r *repository) Insert(ctx context.Context, t Transaction) (Transaction, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO transactions
(reference_number, user_id, account_id, category_id, description, amount, type, status, date, balance_before, balance_after, notes, tags)
VALUES ($1,$2,$3,$4,$5,$6::numeric,$7,$8,$9,$10::numeric,$11::numeric,$12,$13)
RETURNING id, created_at, updated_at`,
		t.ReferenceNumber, t.OwnerID, t.AccountID, t.CategoryID, t.Description,
		t.Amount.String(), t.Type, t.Status, t.Date,
		t.BalanceBefore.String(), t.BalanceAfter.String(), t.Notes, t.Tags)
	if err := row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Transaction{}, fmt.Errorf("ledger: reference number collision: %w", err)
		}
		return Transaction{}, err
	}
	return t, nil
}

func (r *repository) Update(ctx context.Context, t Transaction) error {
	tag, err := r.db.Exec(ctx, `UPDATE transactions SET description=$1, notes=$2, tags=$3, category_id=$4, date=$5, updated_at=NOW()
WHERE id=$6 AND user_id=$7`, t.Description, t.Notes, t.Tags, t.CategoryID, t.Date, t.ID, t.OwnerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, ownerID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE id=$1 AND user_id=$2`, id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *repository) FindCategoryByType(ctx context.Context, ownerID int64, t categories.TransactionType) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `SELECT id FROM categories WHERE user_id=$1 AND type=$2 ORDER BY id ASC LIMIT 1`, ownerID, t).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrCategoryNotFound
	}
	return id, err
}
