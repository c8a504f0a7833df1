package services

import (
	"context"
	"errors"
	"strings"

	"internship-portal/internal/auth"
	"internship-portal/internal/logging"
	"internship-portal/internal/storage"
	"internship-portal/internal/transport/dto"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

type authService struct {
	users    storage.UserRepository
	issuer   *auth.Issuer
	validate *validator.Validate
}

// NewAuthService creates a new instance of AuthService.
func NewAuthService(users storage.UserRepository, issuer *auth.Issuer) AuthService {
	return &authService{users: users, issuer: issuer, validate: newValidator()}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if err := validateRequest(s.validate, req); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			logger.Info("Login attempt failed: user not found", "email", email)
			return nil, ErrInvalidCredentials
		}
		return nil, mapRepoError(ctx, err, "fetching user for login", nil)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		logger.Info("Login attempt failed: invalid password", "email", email)
		return nil, ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(user.ID, user.Role)
	if err != nil {
		logger.Error("Error generating login token", "user_id", user.ID, "error", err)
		return nil, err
	}
	return &dto.LoginResponse{
		Token:     token,
		ExpiresIn: int64(s.issuer.TTL().Seconds()),
		Role:      user.Role,
	}, nil
}
