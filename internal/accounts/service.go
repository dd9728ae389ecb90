package accounts

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/molda-invest/api/internal/shared"
)

var (
	// ErrAccountNotFound covers absent rows and rows owned by someone else.
	ErrAccountNotFound = fmt.Errorf("accounts: account %w", shared.ErrNotFound)
	// ErrAccountInUse blocks deletion while transactions reference the account.
	ErrAccountInUse = fmt.Errorf("accounts: account has transactions: %w", shared.ErrConflict)
	// ErrNegativeInitialBalance rejects negative opening balances.
	ErrNegativeInitialBalance = fmt.Errorf("accounts: initial balance cannot be negative: %w", shared.ErrInvalid)
	// ErrInvalidStatus rejects unknown status values.
	ErrInvalidStatus = fmt.Errorf("accounts: unknown status: %w", shared.ErrInvalid)
)

// Service implements account CRUD. Balance mutation is deliberately not
// here: every delta funnels through the ledger engine's transactional
// apply so no two code paths can compute a new balance from
// independently-read old ones.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create opens an account. No transaction history is created for the
// initial balance.
func (s *Service) Create(ctx context.Context, ownerID int64, req CreateAccountRequest) (Account, error) {
	balance := decimal.Zero
	if req.InitialBalance != nil {
		balance = *req.InitialBalance
	}
	if balance.IsNegative() {
		return Account{}, ErrNegativeInitialBalance
	}
	a := Account{
		OwnerID: ownerID,
		Name:    req.Name,
		Color:   req.Color,
		Icon:    req.Icon,
		Balance: balance,
		Status:  StatusActive,
	}
	if a.Color == "" {
		a.Color = "#6366f1"
	}
	return s.repo.Insert(ctx, a)
}

// Get returns one owned account.
func (s *Service) Get(ctx context.Context, ownerID, id int64) (Account, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// List returns the owner's accounts, newest first.
func (s *Service) List(ctx context.Context, ownerID int64) ([]Account, error) {
	return s.repo.List(ctx, ownerID)
}

// GetBalance returns the current balance of one owned account.
func (s *Service) GetBalance(ctx context.Context, ownerID, id int64) (decimal.Decimal, error) {
	a, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return a.Balance, nil
}

// Update patches display fields and status. Balance is untouchable here.
func (s *Service) Update(ctx context.Context, ownerID, id int64, req UpdateAccountRequest) (Account, error) {
	a, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return Account{}, err
	}
	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.Color != nil {
		a.Color = *req.Color
	}
	if req.Icon != nil {
		a.Icon = *req.Icon
	}
	if req.Status != nil {
		switch *req.Status {
		case StatusActive, StatusSuspended, StatusClosed:
			a.Status = *req.Status
		default:
			return Account{}, fmt.Errorf("%w: %q", ErrInvalidStatus, *req.Status)
		}
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return Account{}, err
	}
	return a, nil
}

// Remove deletes an account that owns zero transactions. The dependent
// count runs in the same transaction as the delete to avoid racing a
// concurrent transaction create.
func (s *Service) Remove(ctx context.Context, ownerID, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.Get(ctx, ownerID, id); err != nil {
			return err
		}
		count, err := tx.CountTransactions(ctx, ownerID, id)
		if err != nil {
			return fmt.Errorf("count transactions: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%w (%d transactions)", ErrAccountInUse, count)
		}
		return tx.Delete(ctx, ownerID, id)
	})
}
