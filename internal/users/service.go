package users

import (
	"context"

	"github.com/molda-invest/api/internal/auth"
)

// Profile is the authenticated user's own view of the account.
type Profile struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	CPF             string `json:"cpf"`
	Phone           string `json:"phone"`
	Status          string `json:"status"`
	IsEmailVerified bool   `json:"is_email_verified"`
}

// Service exposes read access to the caller's own account.
type Service struct {
	repo auth.Repository
}

func NewService(repo auth.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Me(ctx context.Context, userID int64) (Profile, error) {
	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		CPF:             u.CPF,
		Phone:           u.Phone,
		Status:          string(u.Status),
		IsEmailVerified: u.IsEmailVerified,
	}, nil
}
