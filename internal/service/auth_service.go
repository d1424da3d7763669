package service

import (
	"context"
	"time"

	"github.com/xxxsen/mephisto/internal/model"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
	"github.com/xxxsen/mephisto/internal/pkg/jwt"
	"github.com/xxxsen/mephisto/internal/pkg/password"
)

type AuthService struct {
	users     UserRepository
	jwtSecret []byte
	jwtTTL    time.Duration
}

func NewAuthService(users UserRepository, secret []byte, ttl time.Duration) *AuthService {
	return &AuthService{users: users, jwtSecret: secret, jwtTTL: ttl}
}

func (s *AuthService) Login(ctx context.Context, login, plainPassword string) (*model.User, string, error) {
	user, err := s.users.GetByLogin(ctx, login)
	if err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	token, err := jwt.GenerateToken(user.ID, user.Login, user.Admin, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}
