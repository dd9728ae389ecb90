package accounts

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memAccountRepo struct {
	mu     sync.Mutex
	rows   map[int64]Account
	txRefs map[int64]int
	nextID int64
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{rows: make(map[int64]Account), txRefs: make(map[int64]int)}
}

func (r *memAccountRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make(map[int64]Account, len(r.rows))
	for id, a := range r.rows {
		snapshot[id] = a
	}
	if err := fn(ctx, (*memAccountTx)(r)); err != nil {
		r.rows = snapshot
		return err
	}
	return nil
}

func (r *memAccountRepo) Get(ctx context.Context, ownerID, id int64) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*memAccountTx)(r).get(ownerID, id)
}

func (r *memAccountRepo) List(ctx context.Context, ownerID int64) ([]Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Account
	for _, a := range r.rows {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memAccountRepo) Insert(ctx context.Context, a Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = r.nextID
	r.rows[a.ID] = a
	return a, nil
}

func (r *memAccountRepo) Update(ctx context.Context, a Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := (*memAccountTx)(r).get(a.OwnerID, a.ID); err != nil {
		return err
	}
	r.rows[a.ID] = a
	return nil
}

type memAccountTx memAccountRepo

func (r *memAccountTx) get(ownerID, id int64) (Account, error) {
	a, ok := r.rows[id]
	if !ok || a.OwnerID != ownerID {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (r *memAccountTx) Get(ctx context.Context, ownerID, id int64) (Account, error) {
	return r.get(ownerID, id)
}

func (r *memAccountTx) CountTransactions(ctx context.Context, ownerID, accountID int64) (int, error) {
	return r.txRefs[accountID], nil
}

func (r *memAccountTx) Delete(ctx context.Context, ownerID, id int64) error {
	if _, err := r.get(ownerID, id); err != nil {
		return err
	}
	delete(r.rows, id)
	return nil
}

const owner int64 = 11

func TestCreateDefaultsToZeroBalance(t *testing.T) {
	svc := NewService(newMemAccountRepo())

	a, err := svc.Create(context.Background(), owner, CreateAccountRequest{Name: "Carteira"})
	require.NoError(t, err)
	require.True(t, a.Balance.IsZero())
	require.Equal(t, StatusActive, a.Status)
	require.NotEmpty(t, a.Color)
}

func TestCreateHonoursInitialBalance(t *testing.T) {
	svc := NewService(newMemAccountRepo())

	initial := decimal.RequireFromString("2500.75")
	a, err := svc.Create(context.Background(), owner, CreateAccountRequest{Name: "Poupança", InitialBalance: &initial})
	require.NoError(t, err)
	require.True(t, a.Balance.Equal(initial))
}

func TestCreateRejectsNegativeInitialBalance(t *testing.T) {
	svc := NewService(newMemAccountRepo())

	initial := decimal.RequireFromString("-0.01")
	_, err := svc.Create(context.Background(), owner, CreateAccountRequest{Name: "Errada", InitialBalance: &initial})
	require.ErrorIs(t, err, ErrNegativeInitialBalance)
}

func TestUpdateCannotTouchBalance(t *testing.T) {
	repo := newMemAccountRepo()
	svc := NewService(repo)
	ctx := context.Background()

	initial := decimal.RequireFromString("100.00")
	a, err := svc.Create(ctx, owner, CreateAccountRequest{Name: "Conta", InitialBalance: &initial})
	require.NoError(t, err)

	name := "Conta Renomeada"
	status := StatusSuspended
	updated, err := svc.Update(ctx, owner, a.ID, UpdateAccountRequest{Name: &name, Status: &status})
	require.NoError(t, err)
	require.Equal(t, name, updated.Name)
	require.Equal(t, StatusSuspended, updated.Status)
	require.True(t, updated.Balance.Equal(initial), "update must never move the balance")
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	svc := NewService(newMemAccountRepo())
	ctx := context.Background()

	a, err := svc.Create(ctx, owner, CreateAccountRequest{Name: "Conta"})
	require.NoError(t, err)

	bogus := AccountStatus("FROZEN")
	_, err = svc.Update(ctx, owner, a.ID, UpdateAccountRequest{Status: &bogus})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRemoveBlockedWhileTransactionsExist(t *testing.T) {
	repo := newMemAccountRepo()
	svc := NewService(repo)
	ctx := context.Background()

	a, err := svc.Create(ctx, owner, CreateAccountRequest{Name: "Movimentada"})
	require.NoError(t, err)
	repo.txRefs[a.ID] = 3

	err = svc.Remove(ctx, owner, a.ID)
	require.ErrorIs(t, err, ErrAccountInUse)

	repo.txRefs[a.ID] = 0
	require.NoError(t, svc.Remove(ctx, owner, a.ID))
	_, err = svc.Get(ctx, owner, a.ID)
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestOwnerScopingHidesForeignAccounts(t *testing.T) {
	svc := NewService(newMemAccountRepo())
	ctx := context.Background()

	a, err := svc.Create(ctx, owner, CreateAccountRequest{Name: "Minha"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, owner+1, a.ID)
	require.ErrorIs(t, err, ErrAccountNotFound)
	_, err = svc.GetBalance(ctx, owner+1, a.ID)
	require.ErrorIs(t, err, ErrAccountNotFound)
}
