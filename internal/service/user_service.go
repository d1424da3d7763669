package service

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mephisto/internal/model"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
	"github.com/xxxsen/mephisto/internal/pkg/password"
	"github.com/xxxsen/mephisto/internal/pkg/timeutil"
	"github.com/xxxsen/mephisto/internal/pkg/validate"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, userID string) (*model.User, error)
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	List(ctx context.Context, limit uint) ([]model.User, error)
	AddMembership(ctx context.Context, m *model.Membership) error
	GetMembership(ctx context.Context, siteID, userID string) (*model.Membership, error)
	ListMembers(ctx context.Context, siteID string) ([]model.User, error)
}

type UserService struct {
	users UserRepository
}

func NewUserService(users UserRepository) *UserService {
	return &UserService{users: users}
}

// Create validates and stores a user with a bcrypt hash of plainPassword.
// A taken login is reported as a validation failure on "login".
func (s *UserService) Create(ctx context.Context, user *model.User, plainPassword string) error {
	user.Login = strings.TrimSpace(user.Login)
	user.Email = strings.TrimSpace(user.Email)
	if err := validate.Struct(user); err != nil {
		return err
	}
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return appErr.NewValidationError("password", "can't be blank")
	}
	now := timeutil.NowUnix()
	if user.ID == "" {
		user.ID = newID()
	}
	user.PasswordHash = hash
	if user.Ctime == 0 {
		user.Ctime = now
	}
	user.Mtime = now
	if err := s.users.Create(ctx, user); err != nil {
		if appErr.IsConflict(err) {
			return appErr.NewValidationError("login", "has already been taken")
		}
		return err
	}
	logutil.GetLogger(ctx).Info("user created", zap.String("user_id", user.ID), zap.String("login", user.Login))
	return nil
}

func (s *UserService) GetByID(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *UserService) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	return s.users.GetByLogin(ctx, strings.TrimSpace(login))
}

// List returns users in creation order.
func (s *UserService) List(ctx context.Context, limit uint) ([]model.User, error) {
	return s.users.List(ctx, limit)
}

func (s *UserService) ListMembers(ctx context.Context, siteID string) ([]model.User, error) {
	return s.users.ListMembers(ctx, siteID)
}

func (s *UserService) AddMember(ctx context.Context, siteID, userID string, admin bool) error {
	err := s.users.AddMembership(ctx, &model.Membership{
		SiteID: siteID,
		UserID: userID,
		Admin:  admin,
		Ctime:  timeutil.NowUnix(),
	})
	if appErr.IsConflict(err) {
		return nil
	}
	return err
}

// CanManageSite reports whether a user may administer the assets of a
// site: global admins always can, everyone else needs a membership.
func (s *UserService) CanManageSite(ctx context.Context, userID, siteID string) (bool, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if user.Admin {
		return true, nil
	}
	if _, err := s.users.GetMembership(ctx, siteID, userID); err != nil {
		if appErr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
