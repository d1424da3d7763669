package converter

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mephisto/internal/model"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
)

// ImportUsers creates every source user whose login is not taken yet and
// returns how many were created.
func (r *Run) ImportUsers(ctx context.Context, users []*SourceUser, mapFn UserMapper) (int, error) {
	created := 0
	for _, src := range users {
		outcome, err := r.ImportUser(ctx, src, mapFn)
		if err != nil {
			return created, err
		}
		if outcome.Created() {
			created++
		}
	}
	logutil.GetLogger(ctx).Info(fmt.Sprintf("migrated %d user(s)", r.counters.Users))
	return created, nil
}

// ImportUser creates one user. A rejected email is replaced once with
// "<source login>@nodomain.com"; any other rejection is fatal. The caller's
// record is left untouched.
func (r *Run) ImportUser(ctx context.Context, in *SourceUser, mapFn UserMapper) (model.ImportOutcome, error) {
	if in == nil {
		return model.OutcomeSkipped, nil
	}
	record := *in
	src := &record
	logger := logutil.GetLogger(ctx).With(zap.String("login", src.Login))
	existing, err := r.UserByLogin(ctx, src.Login)
	if err != nil {
		return model.OutcomeFatal, err
	}
	if existing != nil {
		logger.Debug("user already exists, skipped")
		return model.OutcomeSkippedExisting, nil
	}
	logger.Info("creating new user")
	emailReplaced := false
	for {
		user, err := mapFn(ctx, r, src)
		if err != nil {
			return model.OutcomeFatal, fmt.Errorf("map user %q: %w", src.Login, err)
		}
		if user == nil {
			return model.OutcomeSkipped, nil
		}
		err = r.users.Create(ctx, user, r.opts.NewUserPassword)
		if err == nil {
			r.counters.Users++
			if emailReplaced {
				return model.OutcomeRecovered, nil
			}
			return model.OutcomePersisted, nil
		}
		verr, ok := appErr.AsValidation(err)
		if !ok {
			return model.OutcomeFatal, fmt.Errorf("create user %q: %w", src.Login, err)
		}
		if verr.Has("email") && !emailReplaced {
			logger.Info("retrying with new email", zap.String("rejected_email", user.Email))
			src.Email = src.Login + "@" + placeholderEmailDomain
			emailReplaced = true
			continue
		}
		logger.Error("invalid user", zap.Strings("errors", verr.Messages()), zap.Any("user", user))
		return model.OutcomeFatal, fmt.Errorf("create user %q: %w", src.Login, err)
	}
}
