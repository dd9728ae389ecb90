package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStore keeps opaque bearer tokens, email-verification tokens and
// one-time codes in redis. Every entry is single-purpose and expires on
// its own TTL, so a crashed or restarted server never resurrects stale
// credentials.
type TokenStore struct {
	client     *redis.Client
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, accessTTL, refreshTTL time.Duration) *TokenStore {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenStore{client: client, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func newToken() string {
	var buf [32]byte
	_, _ = rand.Read(buf[:])
	return base64.RawURLEncoding.EncodeToString(buf[:])
}

// AccessTTL reports the configured access token lifetime.
func (s *TokenStore) AccessTTL() time.Duration {
	return s.accessTTL
}

// IssueAccess mints an access token for the user.
func (s *TokenStore) IssueAccess(ctx context.Context, userID int64) (string, error) {
	token := newToken()
	key := "auth:access:" + token
	if err := s.client.Set(ctx, key, userID, s.accessTTL).Err(); err != nil {
		return "", fmt.Errorf("auth: store access token: %w", err)
	}
	return token, nil
}

// IssueRefresh mints a refresh token for the user.
func (s *TokenStore) IssueRefresh(ctx context.Context, userID int64) (string, error) {
	token := newToken()
	key := "auth:refresh:" + token
	if err := s.client.Set(ctx, key, userID, s.refreshTTL).Err(); err != nil {
		return "", fmt.Errorf("auth: store refresh token: %w", err)
	}
	return token, nil
}

// ResolveAccess maps an access token back to a user id.
func (s *TokenStore) ResolveAccess(ctx context.Context, token string) (int64, error) {
	return s.resolve(ctx, "auth:access:"+token)
}

// ResolveRefresh maps a refresh token back to a user id.
func (s *TokenStore) ResolveRefresh(ctx context.Context, token string) (int64, error) {
	return s.resolve(ctx, "auth:refresh:"+token)
}

func (s *TokenStore) resolve(ctx context.Context, key string) (int64, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, ErrInvalidToken
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}

// StoreVerification keeps an email verification token for 24 hours.
func (s *TokenStore) StoreVerification(ctx context.Context, userID int64) (string, error) {
	token := newToken()
	key := "auth:verify:" + token
	if err := s.client.Set(ctx, key, userID, 24*time.Hour).Err(); err != nil {
		return "", fmt.Errorf("auth: store verification token: %w", err)
	}
	return token, nil
}

// ConsumeVerification resolves and deletes a verification token.
func (s *TokenStore) ConsumeVerification(ctx context.Context, token string) (int64, error) {
	key := "auth:verify:" + token
	userID, err := s.resolve(ctx, key)
	if err != nil {
		return 0, err
	}
	_ = s.client.Del(ctx, key).Err()
	return userID, nil
}

// StoreOTP keeps a login code for 10 minutes, replacing any earlier one.
func (s *TokenStore) StoreOTP(ctx context.Context, userID int64, code string) error {
	key := fmt.Sprintf("auth:otp:%d", userID)
	if err := s.client.Set(ctx, key, code, 10*time.Minute).Err(); err != nil {
		return fmt.Errorf("auth: store otp: %w", err)
	}
	return nil
}

// ConsumeOTP validates and deletes the user's pending code. Codes are
// single-use: a correct code removes the entry, a wrong one leaves it.
func (s *TokenStore) ConsumeOTP(ctx context.Context, userID int64, code string) error {
	key := fmt.Sprintf("auth:otp:%d", userID)
	stored, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return ErrNoOTPRequested
	}
	if err != nil {
		return err
	}
	if stored != code {
		return ErrInvalidOTP
	}
	return s.client.Del(ctx, key).Err()
}
