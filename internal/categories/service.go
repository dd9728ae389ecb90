package categories

import (
	"context"
	"fmt"

	"github.com/molda-invest/api/internal/shared"
)

var (
	// ErrCategoryNotFound covers absent rows and rows owned by someone else.
	ErrCategoryNotFound = fmt.Errorf("categories: category %w", shared.ErrNotFound)
	// ErrDefaultsExist signals the onboarding catalog was already created.
	ErrDefaultsExist = fmt.Errorf("categories: defaults already created: %w", shared.ErrConflict)
	// ErrCategoryInUse blocks deletes and type edits while transactions reference the category.
	ErrCategoryInUse = fmt.Errorf("categories: category has transactions: %w", shared.ErrConflict)
	// ErrInvalidType rejects unknown transaction types.
	ErrInvalidType = fmt.Errorf("categories: unknown transaction type: %w", shared.ErrInvalid)
)

// Service implements the category registry.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Defaults returns the fixed onboarding catalog. Pure, no side effects.
func (s *Service) Defaults() []DefaultCategory {
	return Defaults()
}

// InstantiateDefaults creates the onboarding catalog for a new owner.
// A second call finds existing categories and reports ErrDefaultsExist;
// the conflict means "already done", callers should not retry.
func (s *Service) InstantiateDefaults(ctx context.Context, ownerID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		count, err := tx.CountByOwner(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("count categories: %w", err)
		}
		if count > 0 {
			return ErrDefaultsExist
		}
		return tx.InsertBatch(ctx, ownerID, Defaults())
	})
}

// Create adds a custom category for the owner.
func (s *Service) Create(ctx context.Context, ownerID int64, req CreateCategoryRequest) (Category, error) {
	if !req.Type.Valid() {
		return Category{}, fmt.Errorf("%w: %q", ErrInvalidType, req.Type)
	}
	c := Category{
		OwnerID: ownerID,
		Name:    req.Name,
		Icon:    req.Icon,
		Color:   req.Color,
		Type:    req.Type,
		Budget:  req.Budget,
	}
	if c.Color == "" {
		c.Color = "#6366f1"
	}
	return s.repo.Insert(ctx, c)
}

// Update patches a category. Changing the type is refused while any
// transaction references the category, since stored transactions must
// keep matching their category's type.
func (s *Service) Update(ctx context.Context, ownerID, id int64, req UpdateCategoryRequest) (Category, error) {
	if req.Type != nil && !req.Type.Valid() {
		return Category{}, fmt.Errorf("%w: %q", ErrInvalidType, *req.Type)
	}
	var updated Category
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if req.Type != nil && *req.Type != current.Type {
			refs, err := tx.CountTransactions(ctx, ownerID, id)
			if err != nil {
				return fmt.Errorf("count references: %w", err)
			}
			if refs > 0 {
				return fmt.Errorf("%w (%d referencing)", ErrCategoryInUse, refs)
			}
			current.Type = *req.Type
		}
		if req.Name != nil {
			current.Name = *req.Name
		}
		if req.Icon != nil {
			current.Icon = *req.Icon
		}
		if req.Color != nil {
			current.Color = *req.Color
		}
		if req.Budget != nil {
			current.Budget = req.Budget
		}
		if err := tx.Update(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return Category{}, err
	}
	return updated, nil
}

// Remove deletes a category. The reference count runs inside the same
// transaction as the delete so a concurrent transaction create cannot
// slip between check and removal.
func (s *Service) Remove(ctx context.Context, ownerID, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.Get(ctx, ownerID, id); err != nil {
			return err
		}
		refs, err := tx.CountTransactions(ctx, ownerID, id)
		if err != nil {
			return fmt.Errorf("count references: %w", err)
		}
		if refs > 0 {
			return fmt.Errorf("%w (%d referencing)", ErrCategoryInUse, refs)
		}
		return tx.Delete(ctx, ownerID, id)
	})
}

// Get returns one owned category.
func (s *Service) Get(ctx context.Context, ownerID, id int64) (Category, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// TypeOf looks up a category's declared transaction type. Side-effect
// free; used by the transaction engine to enforce the categorization
// contract.
func (s *Service) TypeOf(ctx context.Context, ownerID, id int64) (TransactionType, error) {
	c, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return "", err
	}
	return c.Type, nil
}

// List returns the owner's categories ordered by name.
func (s *Service) List(ctx context.Context, ownerID int64) ([]Category, error) {
	return s.repo.List(ctx, ownerID)
}

// ListByType returns the owner's categories of one type.
func (s *Service) ListByType(ctx context.Context, ownerID int64, t TransactionType) ([]Category, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
	return s.repo.ListByType(ctx, ownerID, t)
}

// Stats returns per-category transaction counts.
func (s *Service) Stats(ctx context.Context, ownerID int64) ([]CategoryStats, error) {
	return s.repo.Stats(ctx, ownerID)
}
