package auth

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/molda-invest/api/internal/shared"
)

type memUserRepo struct {
	mu     sync.Mutex
	users  map[int64]User
	nextID int64
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[int64]User)}
}

func (r *memUserRepo) Create(ctx context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return User{}, ErrEmailTaken
		}
		if existing.CPF == u.CPF {
			return User{}, ErrCPFTaken
		}
		if existing.Phone == u.Phone {
			return User{}, ErrPhoneTaken
		}
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = u
	return u, nil
}

func (r *memUserRepo) FindByID(ctx context.Context, id int64) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *memUserRepo) FindByIdentifier(ctx context.Context, identifier string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == identifier || u.CPF == identifier {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *memUserRepo) MarkVerified(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	u.IsEmailVerified = true
	u.Status = UserStatusActive
	r.users[id] = u
	return nil
}

func (r *memUserRepo) setStatus(id int64, status UserStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[id]
	u.Status = status
	r.users[id] = u
}

// memNotifier records deliveries instead of sending them.
type memNotifier struct {
	mu            sync.Mutex
	verifications []string
	otps          []string
	failNext      error
}

func (n *memNotifier) SendVerification(ctx context.Context, email, verificationURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failNext != nil {
		err := n.failNext
		n.failNext = nil
		return err
	}
	n.verifications = append(n.verifications, verificationURL)
	return nil
}

func (n *memNotifier) SendOTP(ctx context.Context, email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failNext != nil {
		err := n.failNext
		n.failNext = nil
		return err
	}
	n.otps = append(n.otps, code)
	return nil
}

func (n *memNotifier) lastOTP() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.otps) == 0 {
		return ""
	}
	return n.otps[len(n.otps)-1]
}

type memOnboarder struct {
	mu    sync.Mutex
	calls []int64
	err   error
}

func (o *memOnboarder) InstantiateDefaults(ctx context.Context, ownerID int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, ownerID)
	return o.err
}

type authFixture struct {
	svc       *Service
	repo      *memUserRepo
	tokens    *TokenStore
	notifier  *memNotifier
	onboarder *memOnboarder
	redis     *miniredis.Miniredis
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemUserRepo()
	tokens := NewTokenStore(client, time.Hour, 7*24*time.Hour)
	notifier := &memNotifier{}
	onboarder := &memOnboarder{}
	svc := NewService(slog.Default(), repo, tokens, notifier, onboarder, "http://localhost:3000")
	return &authFixture{svc: svc, repo: repo, tokens: tokens, notifier: notifier, onboarder: onboarder, redis: mr}
}

func registerReq() RegisterRequest {
	return RegisterRequest{
		Name:     "Maria Silva",
		Email:    "maria@example.com",
		CPF:      "12345678901",
		Phone:    "11999990000",
		Password: "s3nh4forte",
	}
}

var verifyTokenRe = regexp.MustCompile(`token=([A-Za-z0-9_-]+)`)

func (f *authFixture) register(t *testing.T) User {
	t.Helper()
	_, err := f.svc.Register(context.Background(), registerReq())
	require.NoError(t, err)
	u, err := f.repo.FindByEmail(context.Background(), "maria@example.com")
	require.NoError(t, err)
	return u
}

func (f *authFixture) verify(t *testing.T) User {
	t.Helper()
	u := f.register(t)
	require.NotEmpty(t, f.notifier.verifications)
	m := verifyTokenRe.FindStringSubmatch(f.notifier.verifications[len(f.notifier.verifications)-1])
	require.Len(t, m, 2)
	_, err := f.svc.VerifyEmail(context.Background(), m[1])
	require.NoError(t, err)
	u, err = f.repo.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	return u
}

func TestRegisterCreatesPendingUser(t *testing.T) {
	f := newAuthFixture(t)
	u := f.register(t)

	require.Equal(t, UserStatusPending, u.Status)
	require.False(t, u.IsEmailVerified)
	require.NotEqual(t, "s3nh4forte", u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3nh4forte")))
	require.Len(t, f.notifier.verifications, 1)
}

func TestRegisterRejectsDuplicateFields(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)

	dup := registerReq()
	dup.CPF = "98765432100"
	dup.Phone = "11888880000"
	_, err := f.svc.Register(context.Background(), dup)
	require.ErrorIs(t, err, ErrEmailTaken)
	require.ErrorIs(t, err, shared.ErrConflict)

	dup = registerReq()
	dup.Email = "outra@example.com"
	dup.Phone = "11888880000"
	_, err = f.svc.Register(context.Background(), dup)
	require.ErrorIs(t, err, ErrCPFTaken)
}

func TestVerifyEmailActivatesAndOnboards(t *testing.T) {
	f := newAuthFixture(t)
	u := f.verify(t)

	require.True(t, u.IsEmailVerified)
	require.Equal(t, UserStatusActive, u.Status)
	require.Equal(t, []int64{u.ID}, f.onboarder.calls)
}

func TestVerifyEmailTokenSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)
	m := verifyTokenRe.FindStringSubmatch(f.notifier.verifications[0])
	require.Len(t, m, 2)

	_, err := f.svc.VerifyEmail(context.Background(), m[1])
	require.NoError(t, err)
	_, err = f.svc.VerifyEmail(context.Background(), m[1])
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyEmailToleratesExistingCatalog(t *testing.T) {
	f := newAuthFixture(t)
	f.onboarder.err = shared.ErrConflict
	u := f.verify(t)
	require.True(t, u.IsEmailVerified, "a pre-existing catalog must not fail verification")
}

func TestResendVerificationSurfacesDeliveryFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)

	f.notifier.failNext = context.DeadlineExceeded
	_, err := f.svc.ResendVerification(context.Background(), "maria@example.com")
	require.Error(t, err)

	_, err = f.svc.ResendVerification(context.Background(), "maria@example.com")
	require.NoError(t, err)
}

func TestResendVerificationRejectsVerifiedUser(t *testing.T) {
	f := newAuthFixture(t)
	f.verify(t)

	_, err := f.svc.ResendVerification(context.Background(), "maria@example.com")
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestRequestOTPRequiresVerifiedEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t)

	_, err := f.svc.RequestOTP(context.Background(), RequestOTPRequest{Identifier: "maria@example.com", Password: "s3nh4forte"})
	require.ErrorIs(t, err, ErrNotVerified)
}

func TestRequestOTPChecksPassword(t *testing.T) {
	f := newAuthFixture(t)
	f.verify(t)

	_, err := f.svc.RequestOTP(context.Background(), RequestOTPRequest{Identifier: "maria@example.com", Password: "errada"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Empty(t, f.notifier.otps)
}

func TestRequestOTPRejectsBlockedUser(t *testing.T) {
	f := newAuthFixture(t)
	u := f.verify(t)
	f.repo.setStatus(u.ID, UserStatusBlocked)

	_, err := f.svc.RequestOTP(context.Background(), RequestOTPRequest{Identifier: "maria@example.com", Password: "s3nh4forte"})
	require.ErrorIs(t, err, ErrBlocked)
}

func TestOTPLoginFlow(t *testing.T) {
	f := newAuthFixture(t)
	u := f.verify(t)
	ctx := context.Background()

	_, err := f.svc.RequestOTP(ctx, RequestOTPRequest{Identifier: "maria@example.com", Password: "s3nh4forte"})
	require.NoError(t, err)
	code := f.notifier.lastOTP()
	require.Regexp(t, `^\d{6}$`, code)

	resp, err := f.svc.VerifyOTP(ctx, VerifyOTPRequest{Identifier: "maria@example.com", OTPCode: code})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "Bearer", resp.TokenType)
	require.Equal(t, u.ID, resp.User.ID)

	userID, err := f.svc.ValidateToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, userID)

	// The code is burned.
	_, err = f.svc.VerifyOTP(ctx, VerifyOTPRequest{Identifier: "maria@example.com", OTPCode: code})
	require.ErrorIs(t, err, ErrNoOTPRequested)
}

func TestOTPLoginByCPF(t *testing.T) {
	f := newAuthFixture(t)
	f.verify(t)
	ctx := context.Background()

	_, err := f.svc.RequestOTP(ctx, RequestOTPRequest{Identifier: "12345678901", Password: "s3nh4forte"})
	require.NoError(t, err)

	_, err = f.svc.VerifyOTP(ctx, VerifyOTPRequest{Identifier: "12345678901", OTPCode: f.notifier.lastOTP()})
	require.NoError(t, err)
}

func TestVerifyOTPWrongCode(t *testing.T) {
	f := newAuthFixture(t)
	f.verify(t)
	ctx := context.Background()

	_, err := f.svc.RequestOTP(ctx, RequestOTPRequest{Identifier: "maria@example.com", Password: "s3nh4forte"})
	require.NoError(t, err)

	_, err = f.svc.VerifyOTP(ctx, VerifyOTPRequest{Identifier: "maria@example.com", OTPCode: "000000"})
	require.ErrorIs(t, err, ErrInvalidOTP)
}

func TestRefreshIssuesNewAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	f.verify(t)
	ctx := context.Background()

	_, err := f.svc.RequestOTP(ctx, RequestOTPRequest{Identifier: "maria@example.com", Password: "s3nh4forte"})
	require.NoError(t, err)
	login, err := f.svc.VerifyOTP(ctx, VerifyOTPRequest{Identifier: "maria@example.com", OTPCode: f.notifier.lastOTP()})
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
	require.NotEqual(t, login.AccessToken, refreshed.AccessToken)
	require.Equal(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = f.svc.Refresh(ctx, "bogus")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsBlockedUser(t *testing.T) {
	f := newAuthFixture(t)
	u := f.verify(t)
	ctx := context.Background()

	_, err := f.svc.RequestOTP(ctx, RequestOTPRequest{Identifier: "maria@example.com", Password: "s3nh4forte"})
	require.NoError(t, err)
	login, err := f.svc.VerifyOTP(ctx, VerifyOTPRequest{Identifier: "maria@example.com", OTPCode: f.notifier.lastOTP()})
	require.NoError(t, err)

	f.repo.setStatus(u.ID, UserStatusBlocked)
	_, err = f.svc.ValidateToken(ctx, login.AccessToken)
	require.ErrorIs(t, err, ErrBlocked)
}
