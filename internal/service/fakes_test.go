package service

import (
	"context"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/xxxsen/mephisto/internal/filestore"
	"github.com/xxxsen/mephisto/internal/model"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
)

type memAssetRepo struct {
	mu     sync.Mutex
	items  map[string]*model.Asset
	order  []string
	lastKC string
}

func newMemAssetRepo() *memAssetRepo {
	return &memAssetRepo{items: make(map[string]*model.Asset)}
}

func (r *memAssetRepo) Create(ctx context.Context, asset *model.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.Dir == asset.Dir && item.Filename == asset.Filename {
			return appErr.ErrConflict
		}
	}
	cp := *asset
	r.items[asset.ID] = &cp
	r.order = append(r.order, asset.ID)
	return nil
}

func (r *memAssetRepo) GetByID(ctx context.Context, siteID, assetID string) (*model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[assetID]
	if !ok || (siteID != "" && item.SiteID != siteID) {
		return nil, appErr.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (r *memAssetRepo) ListBySite(ctx context.Context, siteID, query, kindCond string, kindArgs []interface{}, limit, offset uint) ([]model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastKC = kindCond
	out := make([]model.Asset, 0)
	for _, id := range r.order {
		item, ok := r.items[id]
		if !ok || item.SiteID != siteID || item.ParentID != "" {
			continue
		}
		if query != "" && !strings.Contains(item.Filename, query) && !strings.Contains(item.Title, query) {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (r *memAssetRepo) ListThumbnails(ctx context.Context, parentID string) ([]model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Asset, 0)
	for _, id := range r.order {
		if item, ok := r.items[id]; ok && item.ParentID == parentID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Thumbnail < out[j].Thumbnail })
	return out, nil
}

func (r *memAssetRepo) ListMissingThumbnails(ctx context.Context, contentTypes []string, limit uint) ([]model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	allowed := make(map[string]bool, len(contentTypes))
	for _, ct := range contentTypes {
		allowed[ct] = true
	}
	out := make([]model.Asset, 0)
	for _, id := range r.order {
		item, ok := r.items[id]
		if !ok || item.ParentID != "" || item.ThumbnailsCount != 0 || !allowed[item.ContentType] {
			continue
		}
		out = append(out, *item)
		if limit > 0 && uint(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memAssetRepo) Update(ctx context.Context, asset *model.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[asset.ID]; !ok {
		return appErr.ErrNotFound
	}
	for id, item := range r.items {
		if id != asset.ID && item.Dir == asset.Dir && item.Filename == asset.Filename {
			return appErr.ErrConflict
		}
	}
	cp := *asset
	r.items[asset.ID] = &cp
	return nil
}

func (r *memAssetRepo) UpdateThumbnailsCount(ctx context.Context, assetID string, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[assetID]
	if !ok {
		return appErr.ErrNotFound
	}
	item.ThumbnailsCount = count
	return nil
}

func (r *memAssetRepo) Delete(ctx context.Context, assetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[assetID]; !ok {
		return appErr.ErrNotFound
	}
	delete(r.items, assetID)
	return nil
}

func (r *memAssetRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type memSites map[string]*model.Site

func (m memSites) GetByID(ctx context.Context, siteID string) (*model.Site, error) {
	site, ok := m[siteID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	cp := *site
	return &cp, nil
}

// countingStore counts Exists calls and can fail writes on demand.
type countingStore struct {
	filestore.Store
	mu        sync.Mutex
	exists    int
	failSaves bool
}

func (s *countingStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	s.exists++
	s.mu.Unlock()
	return s.Store.Exists(ctx, key)
}

func (s *countingStore) Save(ctx context.Context, key string, r io.ReadSeeker, size int64) error {
	if s.failSaves {
		return os.ErrPermission
	}
	return s.Store.Save(ctx, key, r, size)
}

func (s *countingStore) existsCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exists
}

type memSiteRepo struct {
	mu    sync.Mutex
	sites []model.Site
	gets  int
}

func (r *memSiteRepo) Create(ctx context.Context, site *model.Site) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sites {
		if s.Host == site.Host {
			return appErr.ErrConflict
		}
	}
	r.sites = append(r.sites, *site)
	return nil
}

func (r *memSiteRepo) GetByID(ctx context.Context, siteID string) (*model.Site, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	for _, s := range r.sites {
		if s.ID == siteID {
			cp := s
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (r *memSiteRepo) GetByHost(ctx context.Context, host string) (*model.Site, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sites {
		if s.Host == host {
			cp := s
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (r *memSiteRepo) List(ctx context.Context) ([]model.Site, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Site(nil), r.sites...), nil
}

type memUserRepo struct {
	mu          sync.Mutex
	users       []model.User
	memberships []model.Membership
}

func (r *memUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Login == user.Login {
			return appErr.ErrConflict
		}
	}
	r.users = append(r.users, *user)
	return nil
}

func (r *memUserRepo) find(match func(model.User) bool) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			cp := u
			return &cp, nil
		}
	}
	return nil, appErr.ErrNotFound
}

func (r *memUserRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.ID == userID })
}

func (r *memUserRepo) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	return r.find(func(u model.User) bool { return u.Login == login })
}

func (r *memUserRepo) List(ctx context.Context, limit uint) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]model.User(nil), r.users...)
	if limit > 0 && uint(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memUserRepo) AddMembership(ctx context.Context, m *model.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.memberships {
		if existing.SiteID == m.SiteID && existing.UserID == m.UserID {
			return appErr.ErrConflict
		}
	}
	r.memberships = append(r.memberships, *m)
	return nil
}

func (r *memUserRepo) GetMembership(ctx context.Context, siteID, userID string) (*model.Membership, error) {
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

func (r *memUserRepo) ListMembers(ctx context.Context, siteID string) ([]model.User, error) {
	out := make([]model.User, 0)
	r.mu.Lock()
	ids := make([]string, 0)
	for _, m := range r.memberships {
		if m.SiteID == siteID {
			ids = append(ids, m.UserID)
		}
	}
	r.mu.Unlock()
	for _, id := range ids {
		u, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, nil
}
