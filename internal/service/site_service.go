package service

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mephisto/internal/filter"
	"github.com/xxxsen/mephisto/internal/model"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
	"github.com/xxxsen/mephisto/internal/pkg/timeutil"
	"github.com/xxxsen/mephisto/internal/pkg/validate"
)

const (
	defaultSiteCacheSize = 128
	defaultSiteCacheTTL  = 5 * time.Minute
)

type SiteRepository interface {
	Create(ctx context.Context, site *model.Site) error
	GetByID(ctx context.Context, siteID string) (*model.Site, error)
	GetByHost(ctx context.Context, host string) (*model.Site, error)
	List(ctx context.Context) ([]model.Site, error)
}

// SiteService resolves sites for uploads and imports. Lookups by id are
// served from a short lived cache since every upload needs the host.
type SiteService struct {
	sites SiteRepository
	cache *expirable.LRU[string, model.Site]
}

func NewSiteService(sites SiteRepository, ttl time.Duration) *SiteService {
	if ttl <= 0 {
		ttl = defaultSiteCacheTTL
	}
	return &SiteService{
		sites: sites,
		cache: expirable.NewLRU[string, model.Site](defaultSiteCacheSize, nil, ttl),
	}
}

type SiteInput struct {
	Title  string
	Host   string
	Filter string
}

func (s *SiteService) Create(ctx context.Context, in SiteInput) (*model.Site, error) {
	now := timeutil.NowUnix()
	site := &model.Site{
		ID:     newID(),
		Title:  strings.TrimSpace(in.Title),
		Host:   strings.ToLower(strings.TrimSpace(in.Host)),
		Filter: filter.Normalize(in.Filter),
		Ctime:  now,
		Mtime:  now,
	}
	if site.Filter == "" {
		site.Filter = filter.Markdown
	}
	if err := validate.Struct(site); err != nil {
		return nil, err
	}
	if err := s.sites.Create(ctx, site); err != nil {
		if appErr.IsConflict(err) {
			return nil, appErr.NewValidationError("host", "has already been taken")
		}
		return nil, err
	}
	logutil.GetLogger(ctx).Info("site created", zap.String("site_id", site.ID), zap.String("host", site.Host))
	return site, nil
}

func (s *SiteService) GetByID(ctx context.Context, siteID string) (*model.Site, error) {
	if siteID == "" {
		return nil, appErr.ErrNotFound
	}
	if cached, ok := s.cache.Get(siteID); ok {
		site := cached
		return &site, nil
	}
	site, err := s.sites.GetByID(ctx, siteID)
	if err != nil {
		return nil, err
	}
	s.cache.Add(siteID, *site)
	return site, nil
}

func (s *SiteService) GetByHost(ctx context.Context, host string) (*model.Site, error) {
	return s.sites.GetByHost(ctx, strings.ToLower(strings.TrimSpace(host)))
}

func (s *SiteService) List(ctx context.Context) ([]model.Site, error) {
	return s.sites.List(ctx)
}

// Resolve picks the site an import run writes into: the configured id, or
// the only site when exactly one exists.
func (s *SiteService) Resolve(ctx context.Context, siteID string) (*model.Site, error) {
	if siteID != "" {
		return s.GetByID(ctx, siteID)
	}
	sites, err := s.sites.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(sites) == 0 {
		return nil, appErr.ErrNotFound
	}
	if len(sites) > 1 {
		return nil, appErr.NewValidationError("site_id", "must be given when several sites exist")
	}
	return &sites[0], nil
}
