package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/molda-invest/api/internal/accounts"
	"github.com/molda-invest/api/internal/categories"
	"github.com/molda-invest/api/internal/shared"
)

// memRepo is an in-memory Repository. WithTx holds a single mutex for
// the duration of the closure, which models row locking closely enough
// for the serialization tests below.
type memRepo struct {
	mu       sync.Mutex
	accounts map[int64]*AccountState
	txs      map[int64]Transaction
	catTypes map[int64]categories.TransactionType
	nextID   int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		accounts: make(map[int64]*AccountState),
		txs:      make(map[int64]Transaction),
		catTypes: make(map[int64]categories.TransactionType),
	}
}

func (r *memRepo) addAccount(ownerID, id int64, balance string, status accounts.AccountStatus) {
	r.accounts[id] = &AccountState{
		ID:      id,
		OwnerID: ownerID,
		Balance: decimal.RequireFromString(balance),
		Status:  status,
	}
}

func (r *memRepo) addCategory(id int64, t categories.TransactionType) {
	r.catTypes[id] = t
}

func (r *memRepo) balance(accountID int64) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accounts[accountID].Balance
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshotAccounts := make(map[int64]AccountState, len(r.accounts))
	for id, a := range r.accounts {
		snapshotAccounts[id] = *a
	}
	snapshotTxs := make(map[int64]Transaction, len(r.txs))
	for id, t := range r.txs {
		snapshotTxs[id] = t
	}
	if err := fn(ctx, (*memTx)(r)); err != nil {
		// Roll back.
		for id := range r.accounts {
			s := snapshotAccounts[id]
			r.accounts[id] = &s
		}
		r.txs = snapshotTxs
		return err
	}
	return nil
}

func (r *memRepo) Get(ctx context.Context, ownerID, id int64) (Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return (*memTx)(r).get(ownerID, id)
}

func (r *memRepo) List(ctx context.Context, ownerID int64, filter ListFilter) ([]Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Transaction
	for _, t := range r.txs {
		if t.OwnerID != ownerID {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.AccountID != 0 && t.AccountID != filter.AccountID {
			continue
		}
		if filter.CategoryID != 0 && t.CategoryID != filter.CategoryID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(t.Description), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
		if len(out) > filter.Limit {
			out = out[:filter.Limit]
		}
	}
	return out, nil
}

func (r *memRepo) Count(ctx context.Context, ownerID int64, filter ListFilter) (int, error) {
	filter.Limit, filter.Offset = 0, 0
	list, err := r.List(ctx, ownerID, filter)
	return len(list), err
}

func (r *memRepo) Aggregate(ctx context.Context, ownerID int64, tt categories.TransactionType, filter ListFilter) (decimal.Decimal, int, error) {
	filter.Type = tt
	list, err := r.List(ctx, ownerID, filter)
	if err != nil {
		return decimal.Zero, 0, err
	}
	sum := decimal.Zero
	for _, t := range list {
		sum = sum.Add(t.Amount)
	}
	return sum, len(list), nil
}

// memTx shares memRepo storage; the repo mutex is already held.
type memTx memRepo

func (r *memTx) get(ownerID, id int64) (Transaction, error) {
	t, ok := r.txs[id]
	if !ok || t.OwnerID != ownerID {
		return Transaction{}, ErrTransactionNotFound
	}
	return t, nil
}

func (r *memTx) GetAccountForUpdate(ctx context.Context, ownerID, accountID int64) (AccountState, error) {
	a, ok := r.accounts[accountID]
	if !ok || a.OwnerID != ownerID {
		return AccountState{}, ErrAccountNotFound
	}
	return *a, nil
}

func (r *memTx) ApplyDelta(ctx context.Context, accountID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	a, ok := r.accounts[accountID]
	if !ok {
		return decimal.Zero, ErrAccountNotFound
	}
	a.Balance = a.Balance.Add(delta)
	return a.Balance, nil
}

func (r *memTx) Insert(ctx context.Context, t Transaction) (Transaction, error) {
	for _, existing := range r.txs {
		if existing.ReferenceNumber == t.ReferenceNumber {
			return Transaction{}, fmt.Errorf("reference number collision: %s", t.ReferenceNumber)
		}
	}
	r.nextID++
	t.ID = r.nextID
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	r.txs[t.ID] = t
	return t, nil
}

func (r *memTx) Get(ctx context.Context, ownerID, id int64) (Transaction, error) {
	return r.get(ownerID, id)
}

func (r *memTx) Update(ctx context.Context, t Transaction) error {
	if _, err := r.get(t.OwnerID, t.ID); err != nil {
		return err
	}
	t.UpdatedAt = time.Now()
	r.txs[t.ID] = t
	return nil
}

func (r *memTx) Delete(ctx context.Context, ownerID, id int64) error {
	if _, err := r.get(ownerID, id); err != nil {
		return err
	}
	delete(r.txs, id)
	return nil
}

func (r *memTx) FindCategoryByType(ctx context.Context, ownerID int64, tt categories.TransactionType) (int64, error) {
	var best int64
	for id, t := range r.catTypes {
		if t != tt {
			continue
		}
		if best == 0 || id < best {
			best = id
		}
	}
	if best == 0 {
		return 0, ErrCategoryNotFound
	}
	return best, nil
}

// memRegistry answers category type lookups from the same fixture data.
type memRegistry struct {
	repo *memRepo
}

func (m memRegistry) TypeOf(ctx context.Context, ownerID, categoryID int64) (categories.TransactionType, error) {
	t, ok := m.repo.catTypes[categoryID]
	if !ok {
		return "", ErrCategoryNotFound
	}
	return t, nil
}

// memIdem remembers seen idempotency keys.
type memIdem struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemIdem() *memIdem { return &memIdem{keys: map[string]bool{}} }

func (m *memIdem) CheckAndInsert(ctx context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memIdem) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func (m *memIdem) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key]
}

// failingRegistry simulates an unavailable category lookup.
type failingRegistry struct{ err error }

func (f failingRegistry) TypeOf(context.Context, int64, int64) (categories.TransactionType, error) {
	return "", f.err
}

const testOwner int64 = 7

func newTestService(t *testing.T) (*Service, *memRepo) {
	t.Helper()
	repo := newMemRepo()
	repo.addCategory(1, categories.TypeIncome)
	repo.addCategory(2, categories.TypeExpense)
	repo.addCategory(3, categories.TypeInvestment)
	repo.addCategory(4, categories.TypeTransfer)
	repo.addCategory(5, categories.TypeDividend)
	repo.addCategory(6, categories.TypeRescue)
	svc := NewService(repo, memRegistry{repo}, nil, nil)
	return svc, repo
}

func createReq(accountID, categoryID int64, tt categories.TransactionType, amount string) CreateTransactionRequest {
	return CreateTransactionRequest{
		AccountID:   accountID,
		CategoryID:  categoryID,
		Type:        tt,
		Amount:      decimal.RequireFromString(amount),
		Date:        time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Description: "movimento de teste",
	}
}

func TestCreateAppliesSignedDelta(t *testing.T) {
	cases := []struct {
		name     string
		catID    int64
		txType   categories.TransactionType
		amount   string
		expected string
	}{
		{"income credits", 1, categories.TypeIncome, "250.00", "1250.00"},
		{"expense debits", 2, categories.TypeExpense, "250.00", "750.00"},
		{"investment debits", 3, categories.TypeInvestment, "400.00", "600.00"},
		{"dividend credits", 5, categories.TypeDividend, "10.50", "1010.50"},
		{"rescue credits", 6, categories.TypeRescue, "99.99", "1099.99"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo := newTestService(t)
			repo.addAccount(testOwner, 1, "1000.00", "ACTIVE")

			created, err := svc.Create(context.Background(), testOwner, createReq(1, tc.catID, tc.txType, tc.amount), "")
			require.NoError(t, err)

			require.True(t, created.BalanceBefore.Equal(decimal.RequireFromString("1000.00")))
			require.True(t, created.BalanceAfter.Equal(decimal.RequireFromString(tc.expected)),
				"balance_after = %s, want %s", created.BalanceAfter, tc.expected)
			require.True(t, repo.balance(1).Equal(decimal.RequireFromString(tc.expected)))
			require.Equal(t, StatusCompleted, created.Status)
		})
	}
}

func TestCreateReferencePrefixMatchesType(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "1000.00", "ACTIVE")

	prefixes := map[categories.TransactionType]string{
		categories.TypeIncome:     "INC-",
		categories.TypeExpense:    "EXP-",
		categories.TypeInvestment: "INV-",
		categories.TypeDividend:   "DIV-",
		categories.TypeRescue:     "RSC-",
	}
	catByType := map[categories.TransactionType]int64{
		categories.TypeIncome:     1,
		categories.TypeExpense:    2,
		categories.TypeInvestment: 3,
		categories.TypeDividend:   5,
		categories.TypeRescue:     6,
	}
	for tt, prefix := range prefixes {
		created, err := svc.Create(context.Background(), testOwner, createReq(1, catByType[tt], tt, "1.00"), "")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(created.ReferenceNumber, prefix),
			"reference %s should start with %s", created.ReferenceNumber, prefix)
	}
}

func TestCreateRejectsTypeMismatch(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "1000.00", "ACTIVE")

	// EXPENSE transaction against the INCOME category.
	_, err := svc.Create(context.Background(), testOwner, createReq(1, 1, categories.TypeExpense, "10.00"), "")
	require.ErrorIs(t, err, ErrTypeMismatch)
	require.True(t, repo.balance(1).Equal(decimal.RequireFromString("1000.00")))
}

func TestCreateRejectsTransferType(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "1000.00", "ACTIVE")

	_, err := svc.Create(context.Background(), testOwner, createReq(1, 4, categories.TypeTransfer, "10.00"), "")
	require.ErrorIs(t, err, ErrTransferLeg)
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "1000.00", "ACTIVE")

	_, err := svc.Create(context.Background(), testOwner, createReq(1, 1, "LOAN", "10.00"), "")
	require.ErrorIs(t, err, ErrInvalidType)
}

func TestCreateRejectsNonPositiveAmount(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "1000.00", "ACTIVE")

	for _, amount := range []string{"0", "-5.00"} {
		_, err := svc.Create(context.Background(), testOwner, createReq(1, 1, categories.TypeIncome, amount), "")
		require.ErrorIs(t, err, ErrNonPositiveAmount)
	}
}

func TestCreateInsufficientBalanceLeavesStateUntouched(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "50.00", "ACTIVE")

	_, err := svc.Create(context.Background(), testOwner, createReq(1, 2, categories.TypeExpense, "80.00"), "")
	require.ErrorIs(t, err, ErrInsufficientBalance)

	require.True(t, repo.balance(1).Equal(decimal.RequireFromString("50.00")))
	list, err := svc.FindAll(context.Background(), testOwner, ListFilter{})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestCreateCreditsPostRegardlessOfBalance(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "0.00", "ACTIVE")

	created, err := svc.Create(context.Background(), testOwner, createReq(1, 1, categories.TypeIncome, "10.00"), "")
	require.NoError(t, err)
	require.True(t, created.BalanceAfter.Equal(decimal.RequireFromString("10.00")))
}

func TestCreateRejectsInactiveAccount(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "1000.00", "SUSPENDED")

	_, err := svc.Create(context.Background(), testOwner, createReq(1, 1, categories.TypeIncome, "10.00"), "")
	require.ErrorIs(t, err, ErrAccountInactive)
}

func TestCreateScopesAccountToOwner(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(99, 1, "1000.00", "ACTIVE")

	_, err := svc.Create(context.Background(), testOwner, createReq(1, 1, categories.TypeIncome, "10.00"), "")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestUpdateRejectsImmutableFields(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "1000.00", "ACTIVE")
	created, err := svc.Create(context.Background(), testOwner, createReq(1, 1, categories.TypeIncome, "100.00"), "")
	require.NoError(t, err)

	otherAmount := decimal.RequireFromString("200.00")
	otherType := categories.TypeExpense
	otherAccount := int64(2)

	cases := []struct {
		name string
		req  UpdateTransactionRequest
	}{
		{"amount", UpdateTransactionRequest{Amount: &otherAmount}},
		{"type", UpdateTransactionRequest{Type: &otherType}},
		{"account", UpdateTransactionRequest{AccountID: &otherAccount}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Update(context.Background(), testOwner, created.ID, tc.req)
			require.ErrorIs(t, err, ErrImmutableField)
		})
	}
}

func TestUpdateAcceptsEchoedImmutableValues(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "1000.00", "ACTIVE")
	created, err := svc.Create(context.Background(), testOwner, createReq(1, 1, categories.TypeIncome, "100.00"), "")
	require.NoError(t, err)

	sameAmount := created.Amount
	sameType := created.Type
	desc := "descrição corrigida"
	updated, err := svc.Update(context.Background(), testOwner, created.ID, UpdateTransactionRequest{
		Amount:      &sameAmount,
		Type:        &sameType,
		Description: &desc,
	})
	require.NoError(t, err)
	require.Equal(t, desc, updated.Description)
	require.True(t, updated.Amount.Equal(created.Amount))
}

func TestUpdateRecategorizeEnforcesContract(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "1000.00", "ACTIVE")
	repo.addCategory(10, categories.TypeIncome)
	created, err := svc.Create(context.Background(), testOwner, createReq(1, 1, categories.TypeIncome, "100.00"), "")
	require.NoError(t, err)

	// Moving to another INCOME category works.
	newCat := int64(10)
	updated, err := svc.Update(context.Background(), testOwner, created.ID, UpdateTransactionRequest{CategoryID: &newCat})
	require.NoError(t, err)
	require.Equal(t, newCat, updated.CategoryID)

	// Moving to an EXPENSE category does not.
	wrongCat := int64(2)
	_, err = svc.Update(context.Background(), testOwner, created.ID, UpdateTransactionRequest{CategoryID: &wrongCat})
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestRemoveRestoresBalance(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "100.00", "ACTIVE")

	created, err := svc.Create(context.Background(), testOwner, createReq(1, 1, categories.TypeIncome, "50.00"), "")
	require.NoError(t, err)
	require.True(t, repo.balance(1).Equal(decimal.RequireFromString("150.00")))

	result, err := svc.Remove(context.Background(), testOwner, created.ID)
	require.NoError(t, err)
	require.True(t, result.PreviousBalance.Equal(decimal.RequireFromString("150.00")))
	require.True(t, result.NewBalance.Equal(decimal.RequireFromString("100.00")))
	require.True(t, repo.balance(1).Equal(decimal.RequireFromString("100.00")))

	_, err = svc.FindOne(context.Background(), testOwner, created.ID)
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestRemoveExpenseRestoresBalanceUpward(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "100.00", "ACTIVE")

	created, err := svc.Create(context.Background(), testOwner, createReq(1, 2, categories.TypeExpense, "30.00"), "")
	require.NoError(t, err)
	require.True(t, repo.balance(1).Equal(decimal.RequireFromString("70.00")))

	result, err := svc.Remove(context.Background(), testOwner, created.ID)
	require.NoError(t, err)
	require.True(t, result.NewBalance.Equal(decimal.RequireFromString("100.00")))
}

func TestBalanceScenarioSequence(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "100.00", "ACTIVE")
	ctx := context.Background()

	_, err := svc.Create(ctx, testOwner, createReq(1, 2, categories.TypeExpense, "30.00"), "")
	require.NoError(t, err)
	require.True(t, repo.balance(1).Equal(decimal.RequireFromString("70.00")))

	_, err = svc.Create(ctx, testOwner, createReq(1, 2, categories.TypeExpense, "80.00"), "")
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.True(t, repo.balance(1).Equal(decimal.RequireFromString("70.00")))

	_, err = svc.Create(ctx, testOwner, createReq(1, 1, categories.TypeIncome, "50.00"), "")
	require.NoError(t, err)
	require.True(t, repo.balance(1).Equal(decimal.RequireFromString("120.00")))

	_, err = svc.Create(ctx, testOwner, createReq(1, 5, categories.TypeDividend, "30.00"), "")
	require.NoError(t, err)
	require.True(t, repo.balance(1).Equal(decimal.RequireFromString("150.00")))
}

func TestTransferMovesBothLegs(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "500.00", "ACTIVE")
	repo.addAccount(testOwner, 2, "100.00", "ACTIVE")

	result, err := svc.CreateTransfer(context.Background(), testOwner, CreateTransferRequest{
		FromAccountID: 1,
		ToAccountID:   2,
		Amount:        decimal.RequireFromString("200.00"),
		Date:          time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		Description:   "reserva de emergência",
	})
	require.NoError(t, err)

	require.True(t, repo.balance(1).Equal(decimal.RequireFromString("300.00")))
	require.True(t, repo.balance(2).Equal(decimal.RequireFromString("300.00")))

	require.Equal(t, categories.TransactionType("TRANSFER"), result.Out.Type)
	require.Equal(t, categories.TransactionType("TRANSFER"), result.In.Type)
	require.True(t, strings.HasSuffix(result.Out.ReferenceNumber, "-OUT"))
	require.True(t, strings.HasSuffix(result.In.ReferenceNumber, "-IN"))
	require.Equal(t,
		strings.TrimSuffix(result.Out.ReferenceNumber, "-OUT"),
		strings.TrimSuffix(result.In.ReferenceNumber, "-IN"),
		"both legs share the correlation reference")
	require.Contains(t, result.Out.Description, "Transferência para conta destino")
	require.Contains(t, result.In.Description, "Transferência da conta origem")
}

func TestTransferRejectsSameAccount(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "500.00", "ACTIVE")

	_, err := svc.CreateTransfer(context.Background(), testOwner, CreateTransferRequest{
		FromAccountID: 1,
		ToAccountID:   1,
		Amount:        decimal.RequireFromString("10.00"),
		Date:          time.Now(),
		Description:   "loop",
	})
	require.ErrorIs(t, err, ErrSameAccount)
}

func TestTransferInsufficientOriginBalance(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "50.00", "ACTIVE")
	repo.addAccount(testOwner, 2, "0.00", "ACTIVE")

	_, err := svc.CreateTransfer(context.Background(), testOwner, CreateTransferRequest{
		FromAccountID: 1,
		ToAccountID:   2,
		Amount:        decimal.RequireFromString("80.00"),
		Date:          time.Now(),
		Description:   "além do saldo",
	})
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.True(t, repo.balance(1).Equal(decimal.RequireFromString("50.00")))
	require.True(t, repo.balance(2).Equal(decimal.RequireFromString("0.00")))
}

func TestRemoveRejectsTransferLeg(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "500.00", "ACTIVE")
	repo.addAccount(testOwner, 2, "0.00", "ACTIVE")

	result, err := svc.CreateTransfer(context.Background(), testOwner, CreateTransferRequest{
		FromAccountID: 1,
		ToAccountID:   2,
		Amount:        decimal.RequireFromString("100.00"),
		Date:          time.Now(),
		Description:   "mover",
	})
	require.NoError(t, err)

	_, err = svc.Remove(context.Background(), testOwner, result.Out.ID)
	require.ErrorIs(t, err, ErrTransferLeg)
	_, err = svc.Remove(context.Background(), testOwner, result.In.ID)
	require.ErrorIs(t, err, ErrTransferLeg)
}

func TestConcurrentCreatesNeverLoseAnUpdate(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "0.00", "ACTIVE")

	const n = 50
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := svc.Create(context.Background(), testOwner, createReq(1, 1, categories.TypeIncome, "1.00"), "")
			return err
		})
	}
	require.NoError(t, g.Wait())

	require.True(t, repo.balance(1).Equal(decimal.NewFromInt(n)),
		"final balance %s, want %d", repo.balance(1), n)
	list, err := svc.FindAll(context.Background(), testOwner, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, n)
}

func TestFindAllOrdersByDateThenCreation(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "1000.00", "ACTIVE")
	ctx := context.Background()

	older := createReq(1, 1, categories.TypeIncome, "1.00")
	older.Date = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := createReq(1, 1, categories.TypeIncome, "2.00")
	newer.Date = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	first, err := svc.Create(ctx, testOwner, older, "")
	require.NoError(t, err)
	second, err := svc.Create(ctx, testOwner, newer, "")
	require.NoError(t, err)

	list, err := svc.FindAll(ctx, testOwner, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID)
	require.Equal(t, first.ID, list[1].ID)
}

func TestFindAllRejectsUnknownTypeFilter(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.FindAll(context.Background(), testOwner, ListFilter{Type: "LOAN"})
	require.ErrorIs(t, err, ErrInvalidType)
}

func TestFindPageSlicesAndReportsTotals(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "1000.00", "ACTIVE")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		req := createReq(1, 1, categories.TypeIncome, "1.00")
		req.Date = time.Date(2026, 1, 1+i, 0, 0, 0, 0, time.UTC)
		_, err := svc.Create(ctx, testOwner, req, "")
		require.NoError(t, err)
	}

	list, meta, err := svc.FindPage(ctx, testOwner, ListFilter{}, 2, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, 2, meta.Page)
	require.Equal(t, 5, meta.Total)
	require.Equal(t, 3, meta.TotalPages)

	last, meta, err := svc.FindPage(ctx, testOwner, ListFilter{}, 3, 2)
	require.NoError(t, err)
	require.Len(t, last, 1)
	require.Equal(t, 3, meta.TotalPages)

	empty, _, err := svc.FindPage(ctx, testOwner, ListFilter{}, 9, 2)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestCreateRejectsDuplicateIdempotencyKey(t *testing.T) {
	repo := newMemRepo()
	repo.addCategory(1, categories.TypeIncome)
	repo.addAccount(testOwner, 1, "100.00", "ACTIVE")
	svc := NewService(repo, memRegistry{repo}, nil, newMemIdem())
	ctx := context.Background()

	_, err := svc.Create(ctx, testOwner, createReq(1, 1, categories.TypeIncome, "10.00"), "req-1")
	require.NoError(t, err)

	_, err = svc.Create(ctx, testOwner, createReq(1, 1, categories.TypeIncome, "10.00"), "req-1")
	require.ErrorIs(t, err, shared.ErrConflict)

	list, err := svc.FindAll(ctx, testOwner, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.True(t, repo.balance(1).Equal(decimal.RequireFromString("110.00")))
}

func TestFailedCreateReleasesIdempotencyKey(t *testing.T) {
	repo := newMemRepo()
	repo.addCategory(2, categories.TypeExpense)
	repo.addAccount(testOwner, 1, "50.00", "ACTIVE")
	idem := newMemIdem()
	svc := NewService(repo, memRegistry{repo}, nil, idem)
	ctx := context.Background()

	_, err := svc.Create(ctx, testOwner, createReq(1, 2, categories.TypeExpense, "80.00"), "req-2")
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.False(t, idem.has("req-2"))

	_, err = svc.Create(ctx, testOwner, createReq(1, 2, categories.TypeExpense, "20.00"), "req-2")
	require.NoError(t, err)
}

func TestCreateSurfacesRegistryFailure(t *testing.T) {
	repo := newMemRepo()
	repo.addAccount(testOwner, 1, "100.00", "ACTIVE")
	lookupErr := errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
	svc := NewService(repo, failingRegistry{err: lookupErr}, nil, nil)

	_, err := svc.Create(context.Background(), testOwner, createReq(1, 1, categories.TypeIncome, "10.00"), "")
	require.ErrorIs(t, err, lookupErr)
	require.False(t, errors.Is(err, shared.ErrNotFound))
}

func TestUpdateSurfacesRegistryFailure(t *testing.T) {
	svc, repo := newTestService(t)
	repo.addAccount(testOwner, 1, "100.00", "ACTIVE")
	ctx := context.Background()

	created, err := svc.Create(ctx, testOwner, createReq(1, 1, categories.TypeIncome, "10.00"), "")
	require.NoError(t, err)

	lookupErr := errors.New("timeout")
	svc.registry = failingRegistry{err: lookupErr}
	newCat := int64(99)
	_, err = svc.Update(ctx, testOwner, created.ID, UpdateTransactionRequest{CategoryID: &newCat})
	require.ErrorIs(t, err, lookupErr)
	require.False(t, errors.Is(err, shared.ErrNotFound))
}
