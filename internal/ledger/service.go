package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/molda-invest/api/internal/accounts"
	"github.com/molda-invest/api/internal/categories"
	"github.com/molda-invest/api/internal/shared"
)

var (
	// ErrTransactionNotFound covers absent rows and rows owned by someone else.
	ErrTransactionNotFound = fmt.Errorf("ledger: transaction %w", shared.ErrNotFound)
	// ErrAccountNotFound is returned when the owning account is absent or foreign.
	ErrAccountNotFound = fmt.Errorf("ledger: account %w", shared.ErrNotFound)
	// ErrCategoryNotFound is returned when the referenced category is absent or foreign.
	ErrCategoryNotFound = fmt.Errorf("ledger: category %w", shared.ErrNotFound)
	// ErrTypeMismatch enforces the categorization contract.
	ErrTypeMismatch = fmt.Errorf("ledger: transaction type incompatible with category type: %w", shared.ErrInvalid)
	// ErrInsufficientBalance guards deducting types against negative balances.
	ErrInsufficientBalance = fmt.Errorf("ledger: insufficient balance: %w", shared.ErrInvalid)
	// ErrImmutableField rejects edits to amount, type or account binding.
	ErrImmutableField = fmt.Errorf("ledger: field is immutable, delete and recreate instead: %w", shared.ErrInvalid)
	// ErrTransferLeg rejects single-leg operations on transfers.
	ErrTransferLeg = fmt.Errorf("ledger: transfer legs cannot be handled individually: %w", shared.ErrInvalid)
	// ErrSameAccount rejects transfers onto the origin account.
	ErrSameAccount = fmt.Errorf("ledger: cannot transfer to the same account: %w", shared.ErrInvalid)
	// ErrAccountInactive rejects postings against suspended or closed accounts.
	ErrAccountInactive = fmt.Errorf("ledger: account is not active: %w", shared.ErrInvalid)
	// ErrInvalidType rejects unknown transaction types.
	ErrInvalidType = fmt.Errorf("ledger: unknown transaction type: %w", shared.ErrInvalid)
	// ErrNonPositiveAmount rejects zero or negative amounts.
	ErrNonPositiveAmount = fmt.Errorf("ledger: amount must be positive: %w", shared.ErrInvalid)
)

// CategoryRegistry is the engine's read-only view of the category module.
type CategoryRegistry interface {
	TypeOf(ctx context.Context, ownerID, categoryID int64) (categories.TransactionType, error)
}

// AuditPort records applied and reversed movements.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards retried create requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// brl formats amounts for user-facing error detail.
var brl = message.NewPrinter(language.BrazilianPortuguese)

func formatBRL(d decimal.Decimal) string {
	return brl.Sprintf("R$ %.2f", d.InexactFloat64())
}

// Service is the transaction engine: it validates, applies and reverses
// transactions against accounts and categories, keeping balance and row
// mutations atomic.
type Service struct {
	repo     Repository
	registry CategoryRegistry
	audit    AuditPort
	idem     IdempotencyPort
	now      func() time.Time
}

// NewService constructs a new Service. audit and idem may be nil.
func NewService(repo Repository, registry CategoryRegistry, audit AuditPort, idem IdempotencyPort) *Service {
	return &Service{repo: repo, registry: registry, audit: audit, idem: idem, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create validates and applies a single transaction. The balance read,
// the row insert and the delta application happen under one account row
// lock so concurrent creates serialize per account and never lose an
// update.
func (s *Service) Create(ctx context.Context, ownerID int64, req CreateTransactionRequest, idemKey string) (Transaction, error) {
	if !req.Type.Valid() {
		return Transaction{}, fmt.Errorf("%w: %q", ErrInvalidType, req.Type)
	}
	if req.Type == categories.TypeTransfer {
		// Transfers always move through CreateTransfer so no one-sided
		// leg can ever exist.
		return Transaction{}, fmt.Errorf("%w: use the transfer operation", ErrTransferLeg)
	}
	if !req.Amount.IsPositive() {
		return Transaction{}, fmt.Errorf("%w: got %s", ErrNonPositiveAmount, req.Amount)
	}

	catType, err := s.registry.TypeOf(ctx, ownerID, req.CategoryID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Transaction{}, ErrCategoryNotFound
		}
		return Transaction{}, err
	}
	if catType != req.Type {
		return Transaction{}, fmt.Errorf("%w: type %s, category of type %s", ErrTypeMismatch, req.Type, catType)
	}

	if s.idem != nil && idemKey != "" {
		if err := s.idem.CheckAndInsert(ctx, idemKey, "ledger"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Transaction{}, fmt.Errorf("ledger: duplicate request: %w", shared.ErrConflict)
			}
			return Transaction{}, err
		}
	}

	var created Transaction
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		account, err := tx.GetAccountForUpdate(ctx, ownerID, req.AccountID)
		if err != nil {
			return err
		}
		if account.Status != accounts.StatusActive {
			return fmt.Errorf("%w: status %s", ErrAccountInactive, account.Status)
		}

		sign, _ := signOf(req.Type)
		delta := req.Amount.Mul(decimal.NewFromInt(int64(sign)))
		balanceBefore := account.Balance
		balanceAfter := balanceBefore.Add(delta)

		if deductsFromBalance(req.Type) && balanceAfter.IsNegative() {
			return fmt.Errorf("%w: available %s, required %s",
				ErrInsufficientBalance, formatBRL(balanceBefore), formatBRL(req.Amount))
		}

		now := s.now()
		inserted, err := tx.Insert(ctx, Transaction{
			ReferenceNumber: newReferenceNumber(req.Type, now),
			OwnerID:         ownerID,
			AccountID:       req.AccountID,
			CategoryID:      req.CategoryID,
			Description:     req.Description,
			Amount:          req.Amount,
			Type:            req.Type,
			Status:          StatusCompleted,
			Date:            req.Date,
			BalanceBefore:   balanceBefore,
			BalanceAfter:    balanceAfter,
			Notes:           req.Notes,
			Tags:            req.Tags,
		})
		if err != nil {
			return err
		}
		if _, err := tx.ApplyDelta(ctx, req.AccountID, delta); err != nil {
			return err
		}
		created = inserted
		return nil
	})
	if err != nil {
		if s.idem != nil && idemKey != "" {
			_ = s.idem.Delete(ctx, idemKey)
		}
		return Transaction{}, err
	}

	s.recordAudit(ctx, ownerID, "transaction.create", created)
	return created, nil
}

// CreateTransfer posts the two linked legs of a transfer: a debit on the
// origin and a credit on the destination, in one atomic unit. Accounts
// are locked in id order so two crossing transfers cannot deadlock.
func (s *Service) CreateTransfer(ctx context.Context, ownerID int64, req CreateTransferRequest) (TransferResult, error) {
	if req.FromAccountID == req.ToAccountID {
		return TransferResult{}, ErrSameAccount
	}
	if !req.Amount.IsPositive() {
		return TransferResult{}, fmt.Errorf("%w: got %s", ErrNonPositiveAmount, req.Amount)
	}

	var result TransferResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		first, second := req.FromAccountID, req.ToAccountID
		if second < first {
			first, second = second, first
		}
		a1, err := tx.GetAccountForUpdate(ctx, ownerID, first)
		if err != nil {
			return err
		}
		a2, err := tx.GetAccountForUpdate(ctx, ownerID, second)
		if err != nil {
			return err
		}
		from, to := a1, a2
		if from.ID != req.FromAccountID {
			from, to = a2, a1
		}
		if from.Status != accounts.StatusActive || to.Status != accounts.StatusActive {
			return ErrAccountInactive
		}

		fromAfter := from.Balance.Sub(req.Amount)
		if fromAfter.IsNegative() {
			return fmt.Errorf("%w: available %s on origin account, required %s",
				ErrInsufficientBalance, formatBRL(from.Balance), formatBRL(req.Amount))
		}
		toAfter := to.Balance.Add(req.Amount)

		categoryID, err := tx.FindCategoryByType(ctx, ownerID, categories.TypeTransfer)
		if err != nil {
			return err
		}

		now := s.now()
		correlation := uuid.New().String()[:8]
		base := fmt.Sprintf("TRF-%d-%s", now.Unix(), correlation)

		out, err := tx.Insert(ctx, Transaction{
			ReferenceNumber: base + "-OUT",
			OwnerID:         ownerID,
			AccountID:       req.FromAccountID,
			CategoryID:      categoryID,
			Description:     "Transferência para conta destino: " + req.Description,
			Amount:          req.Amount,
			Type:            categories.TypeTransfer,
			Status:          StatusCompleted,
			Date:            req.Date,
			BalanceBefore:   from.Balance,
			BalanceAfter:    fromAfter,
		})
		if err != nil {
			return err
		}
		in, err := tx.Insert(ctx, Transaction{
			ReferenceNumber: base + "-IN",
			OwnerID:         ownerID,
			AccountID:       req.ToAccountID,
			CategoryID:      categoryID,
			Description:     "Transferência da conta origem: " + req.Description,
			Amount:          req.Amount,
			Type:            categories.TypeTransfer,
			Status:          StatusCompleted,
			Date:            req.Date,
			BalanceBefore:   to.Balance,
			BalanceAfter:    toAfter,
		})
		if err != nil {
			return err
		}
		if _, err := tx.ApplyDelta(ctx, req.FromAccountID, req.Amount.Neg()); err != nil {
			return err
		}
		if _, err := tx.ApplyDelta(ctx, req.ToAccountID, req.Amount); err != nil {
			return err
		}
		result = TransferResult{Out: out, In: in, Message: "transfer completed"}
		return nil
	})
	if err != nil {
		return TransferResult{}, err
	}

	s.recordAudit(ctx, ownerID, "transaction.transfer", result.Out)
	return result, nil
}

// Update patches the mutable fields of a transaction. Monetary fields
// are snapshots of history and never recomputed; attempts to change
// amount, type or account binding are rejected.
func (s *Service) Update(ctx context.Context, ownerID, id int64, req UpdateTransactionRequest) (Transaction, error) {
	var updated Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if req.Amount != nil && !req.Amount.Equal(current.Amount) {
			return fmt.Errorf("%w: amount", ErrImmutableField)
		}
		if req.Type != nil && *req.Type != current.Type {
			return fmt.Errorf("%w: type", ErrImmutableField)
		}
		if req.AccountID != nil && *req.AccountID != current.AccountID {
			return fmt.Errorf("%w: account", ErrImmutableField)
		}
		if req.CategoryID != nil && *req.CategoryID != current.CategoryID {
			catType, err := s.registry.TypeOf(ctx, ownerID, *req.CategoryID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return ErrCategoryNotFound
				}
				return err
			}
			if catType != current.Type {
				return fmt.Errorf("%w: type %s, category of type %s", ErrTypeMismatch, current.Type, catType)
			}
			current.CategoryID = *req.CategoryID
		}
		if req.Description != nil {
			current.Description = *req.Description
		}
		if req.Notes != nil {
			current.Notes = req.Notes
		}
		if req.Tags != nil {
			current.Tags = *req.Tags
		}
		if req.Date != nil {
			current.Date = *req.Date
		}
		if err := tx.Update(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	return updated, nil
}

// Remove reverses a transaction: the inverse delta is applied to the
// account and the row is deleted, atomically. Transfer legs are refused,
// a transfer stays in history once posted.
func (s *Service) Remove(ctx context.Context, ownerID, id int64) (RemovalResult, error) {
	var result RemovalResult
	var removed Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if current.Type == categories.TypeTransfer {
			return ErrTransferLeg
		}
		sign, ok := signOf(current.Type)
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidType, current.Type)
		}

		account, err := tx.GetAccountForUpdate(ctx, ownerID, current.AccountID)
		if err != nil {
			return err
		}

		reversing := current.Amount.Mul(decimal.NewFromInt(int64(-sign)))
		newBalance, err := tx.ApplyDelta(ctx, current.AccountID, reversing)
		if err != nil {
			return err
		}
		if err := tx.Delete(ctx, ownerID, id); err != nil {
			return err
		}
		result = RemovalResult{
			Message:         "transaction deleted and balance restored",
			PreviousBalance: account.Balance,
			NewBalance:      newBalance,
		}
		removed = current
		return nil
	})
	if err != nil {
		return RemovalResult{}, err
	}

	s.recordAudit(ctx, ownerID, "transaction.reverse", removed)
	return result, nil
}

// FindOne returns one owned transaction.
func (s *Service) FindOne(ctx context.Context, ownerID, id int64) (Transaction, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// FindAll lists transactions most-recent-first by business date, ties
// broken by creation time.
func (s *Service) FindAll(ctx context.Context, ownerID int64, filter ListFilter) ([]Transaction, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, filter.Type)
	}
	return s.repo.List(ctx, ownerID, filter)
}

// FindPage lists one page of transactions plus pagination metadata.
func (s *Service) FindPage(ctx context.Context, ownerID int64, filter ListFilter, page, perPage int) ([]Transaction, shared.Pagination, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, shared.Pagination{}, fmt.Errorf("%w: %q", ErrInvalidType, filter.Type)
	}
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	total, err := s.repo.Count(ctx, ownerID, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	filter.Limit = perPage
	filter.Offset = (page - 1) * perPage
	list, err := s.repo.List(ctx, ownerID, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(page, perPage, total), nil
}

// FindByAccount lists transactions of one account.
func (s *Service) FindByAccount(ctx context.Context, ownerID, accountID int64) ([]Transaction, error) {
	return s.repo.List(ctx, ownerID, ListFilter{AccountID: accountID})
}

// FindByCategory lists transactions of one category.
func (s *Service) FindByCategory(ctx context.Context, ownerID, categoryID int64) ([]Transaction, error) {
	return s.repo.List(ctx, ownerID, ListFilter{CategoryID: categoryID})
}

func (s *Service) recordAudit(ctx context.Context, ownerID int64, action string, t Transaction) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		OwnerID:  ownerID,
		Action:   action,
		Entity:   "transaction",
		EntityID: fmt.Sprintf("%d", t.ID),
		Meta: map[string]any{
			"reference":      t.ReferenceNumber,
			"account_id":     t.AccountID,
			"type":           string(t.Type),
			"amount":         t.Amount.String(),
			"balance_before": t.BalanceBefore.String(),
			"balance_after":  t.BalanceAfter.String(),
		},
		At: s.now(),
	})
}
