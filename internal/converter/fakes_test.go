package converter

import (
	"context"
	"sync"

	"github.com/xxxsen/mephisto/internal/model"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
)

type memUsers struct {
	mu          sync.Mutex
	users       []*model.User
	memberships []model.Membership
}

func (r *memUsers) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Login == user.Login {
			return appErr.ErrConflict
		}
	}
	cp := *user
	r.users = append(r.users, &cp)
	return nil
}

func (r *memUsers) GetByID(ctx context.Context, userID string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == userID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (r *memUsers) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Login == login {
			cp := *u
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (r *memUsers) List(ctx context.Context, limit uint) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
		if limit > 0 && uint(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memUsers) AddMembership(ctx context.Context, m *model.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memberships = append(r.memberships, *m)
	return nil
}

func (r *memUsers) GetMembership(ctx context.Context, siteID, userID string) (*model.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.memberships {
		if m.SiteID == siteID && m.UserID == userID {
			cp := m
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (r *memUsers) ListMembers(ctx context.Context, siteID string) ([]model.User, error) {
	r.mu.Lock()
	members := make([]string, 0)
	for _, m := range r.memberships {
		if m.SiteID == siteID {
			members = append(members, m.UserID)
		}
	}
	r.mu.Unlock()
	out := make([]model.User, 0, len(members))
	for _, id := range members {
		u, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, nil
}

type memArticles struct {
	mu    sync.Mutex
	items []*model.Article
}

func (r *memArticles) Create(ctx context.Context, article *model.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *article
	r.items = append(r.items, &cp)
	return nil
}

func (r *memArticles) GetByID(ctx context.Context, siteID, articleID string) (*model.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.ID == articleID && a.SiteID == siteID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

type memComments struct {
	mu    sync.Mutex
	items []*model.Comment
}

func (r *memComments) Create(ctx context.Context, comment *model.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *comment
	r.items = append(r.items, &cp)
	return nil
}

func (r *memComments) ListByArticle(ctx context.Context, articleID string) ([]model.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Comment, 0)
	for _, c := range r.items {
		if c.ArticleID == articleID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memComments) all() []model.Comment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Comment, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, *c)
	}
	return out
}
