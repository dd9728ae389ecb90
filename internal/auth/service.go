package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"github.com/molda-invest/api/internal/shared"
)

var (
	// ErrEmailTaken indicates the email already has an account.
	ErrEmailTaken = fmt.Errorf("auth: email already registered: %w", shared.ErrConflict)
	// ErrCPFTaken indicates the CPF already has an account.
	ErrCPFTaken = fmt.Errorf("auth: cpf already registered: %w", shared.ErrConflict)
	// ErrPhoneTaken indicates the phone number already has an account.
	ErrPhoneTaken = fmt.Errorf("auth: phone already registered: %w", shared.ErrConflict)
	// ErrUserNotFound indicates the identifier matched no account.
	ErrUserNotFound = fmt.Errorf("auth: user %w", shared.ErrNotFound)
	// ErrInvalidCredentials indicates password verification failed.
	ErrInvalidCredentials = fmt.Errorf("auth: invalid credentials: %w", shared.ErrUnauthorized)
	// ErrNotVerified blocks login before email verification.
	ErrNotVerified = fmt.Errorf("auth: email not verified: %w", shared.ErrUnauthorized)
	// ErrBlocked blocks login for suspended users.
	ErrBlocked = fmt.Errorf("auth: user blocked: %w", shared.ErrUnauthorized)
	// ErrNoOTPRequested indicates no code is pending for the user.
	ErrNoOTPRequested = fmt.Errorf("auth: no code was requested: %w", shared.ErrUnauthorized)
	// ErrInvalidOTP indicates a wrong code.
	ErrInvalidOTP = fmt.Errorf("auth: invalid code: %w", shared.ErrUnauthorized)
	// ErrInvalidToken indicates an expired or unknown token.
	ErrInvalidToken = fmt.Errorf("auth: invalid or expired token: %w", shared.ErrUnauthorized)
)

// Notifier delivers transactional email. Enqueue failures on
// fire-and-forget paths are logged, never propagated as domain errors.
type Notifier interface {
	SendVerification(ctx context.Context, email, verificationURL string) error
	SendOTP(ctx context.Context, email, code string) error
}

// CategoryOnboarder provisions the default category catalog for a newly
// verified user.
type CategoryOnboarder interface {
	InstantiateDefaults(ctx context.Context, ownerID int64) error
}

// Service wraps registration, verification and OTP login rules.
type Service struct {
	logger      *slog.Logger
	repo        Repository
	tokens      *TokenStore
	notifier    Notifier
	onboarder   CategoryOnboarder
	frontendURL string
}

// NewService constructs a new Service.
func NewService(logger *slog.Logger, repo Repository, tokens *TokenStore, notifier Notifier, onboarder CategoryOnboarder, frontendURL string) *Service {
	return &Service{
		logger:      logger,
		repo:        repo,
		tokens:      tokens,
		notifier:    notifier,
		onboarder:   onboarder,
		frontendURL: frontendURL,
	}
}

// Register creates a PENDING user and emails a verification link.
// Email, CPF and phone uniqueness is enforced by the store's unique
// constraints; a violation maps to the taken field.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (map[string]string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, User{
		Name:            req.Name,
		Email:           req.Email,
		CPF:             req.CPF,
		Phone:           req.Phone,
		PasswordHash:    string(hash),
		Status:          UserStatusPending,
		IsEmailVerified: false,
	})
	if err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, user); err != nil {
		s.logger.Warn("send verification email", slog.String("email", user.Email), slog.Any("error", err))
	}

	return map[string]string{"message": "registration complete, check your email to activate the account"}, nil
}

func (s *Service) sendVerification(ctx context.Context, user User) error {
	token, err := s.tokens.StoreVerification(ctx, user.ID)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/auth/verify-email?token=%s", s.frontendURL, token)
	return s.notifier.SendVerification(ctx, user.Email, url)
}

// VerifyEmail activates the account behind a verification token and
// provisions the default category catalog. Re-verification is harmless:
// an already-created catalog is left untouched.
func (s *Service) VerifyEmail(ctx context.Context, token string) (map[string]string, error) {
	userID, err := s.tokens.ConsumeVerification(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := s.repo.MarkVerified(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.onboarder.InstantiateDefaults(ctx, userID); err != nil && !errors.Is(err, shared.ErrConflict) {
		s.logger.Warn("instantiate default categories", slog.Int64("user_id", userID), slog.Any("error", err))
	}
	return map[string]string{"message": "email verified"}, nil
}

// ResendVerification emails a fresh link. Delivery is the entire point
// of this call, so failures surface to the caller.
func (s *Service) ResendVerification(ctx context.Context, email string) (map[string]string, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user.IsEmailVerified {
		return nil, fmt.Errorf("auth: email already verified: %w", shared.ErrConflict)
	}
	if err := s.sendVerification(ctx, user); err != nil {
		return nil, fmt.Errorf("auth: deliver verification email: %w", err)
	}
	return map[string]string{"message": "verification email sent"}, nil
}

// RequestOTP validates the password and emails a six-digit login code.
func (s *Service) RequestOTP(ctx context.Context, req RequestOTPRequest) (map[string]string, error) {
	user, err := s.repo.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		return nil, err
	}
	if !user.IsEmailVerified {
		return nil, ErrNotVerified
	}
	if user.Status == UserStatusBlocked {
		return nil, ErrBlocked
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	code, err := newOTPCode()
	if err != nil {
		return nil, err
	}
	if err := s.tokens.StoreOTP(ctx, user.ID, code); err != nil {
		return nil, err
	}
	if err := s.notifier.SendOTP(ctx, user.Email, code); err != nil {
		s.logger.Warn("send otp email", slog.String("email", user.Email), slog.Any("error", err))
	}
	return map[string]string{"message": "code sent to email"}, nil
}

// VerifyOTP exchanges a pending code for access and refresh tokens.
func (s *Service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (TokenResponse, error) {
	user, err := s.repo.FindByIdentifier(ctx, req.Identifier)
	if err != nil {
		return TokenResponse{}, err
	}
	if err := s.tokens.ConsumeOTP(ctx, user.ID, req.OTPCode); err != nil {
		return TokenResponse{}, err
	}
	return s.issueTokens(ctx, user)
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself stays valid until its TTL runs out.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenResponse, error) {
	userID, err := s.tokens.ResolveRefresh(ctx, refreshToken)
	if err != nil {
		return TokenResponse{}, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return TokenResponse{}, err
	}
	if user.Status == UserStatusBlocked {
		return TokenResponse{}, ErrBlocked
	}
	access, err := s.tokens.IssueAccess(ctx, user.ID)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
		TokenType:    "Bearer",
		User:         UserSummary{ID: user.ID, Name: user.Name, Email: user.Email},
	}, nil
}

func (s *Service) issueTokens(ctx context.Context, user User) (TokenResponse, error) {
	access, err := s.tokens.IssueAccess(ctx, user.ID)
	if err != nil {
		return TokenResponse{}, err
	}
	refresh, err := s.tokens.IssueRefresh(ctx, user.ID)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
		TokenType:    "Bearer",
		User:         UserSummary{ID: user.ID, Name: user.Name, Email: user.Email},
	}, nil
}

// ValidateToken resolves a bearer token to an active user id.
func (s *Service) ValidateToken(ctx context.Context, token string) (int64, error) {
	userID, err := s.tokens.ResolveAccess(ctx, token)
	if err != nil {
		return 0, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return 0, ErrInvalidToken
	}
	if user.Status == UserStatusBlocked {
		return 0, ErrBlocked
	}
	return user.ID, nil
}

func newOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("auth: generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
