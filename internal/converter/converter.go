package converter

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mephisto/internal/config"
	"github.com/xxxsen/mephisto/internal/filter"
	"github.com/xxxsen/mephisto/internal/model"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
)

const (
	defaultAuthorIP        = "127.0.0.1"
	placeholderEmailDomain = "nodomain.com"
)

// Users is the destination user store. Create reports rejected fields as a
// *errors.ValidationError.
type Users interface {
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	Create(ctx context.Context, user *model.User, plainPassword string) error
	ListMembers(ctx context.Context, siteID string) ([]model.User, error)
	List(ctx context.Context, limit uint) ([]model.User, error)
}

type Articles interface {
	Create(ctx context.Context, article *model.Article) error
}

type Comments interface {
	Create(ctx context.Context, comment *model.Comment) error
}

type Options struct {
	Filter                 string
	NewUserPassword        string
	LenientCommentRecovery bool
}

func OptionsFromConfig(cfg config.ImportConfig) Options {
	return Options{
		Filter:                 cfg.Filter,
		NewUserPassword:        cfg.NewUserPassword,
		LenientCommentRecovery: cfg.LenientCommentRecovery,
	}
}

// Run is one migration into one destination site. It is not safe for
// concurrent use.
type Run struct {
	site     *model.Site
	users    Users
	articles Articles
	comments Comments
	opts     Options

	counters        model.ImportCounters
	articleIndex    map[string]string
	skippedArticles map[string]struct{}
	defaultUser     *model.User
	defaultLoaded   bool
}

func NewRun(site *model.Site, users Users, articles Articles, comments Comments, opts Options) (*Run, error) {
	if site == nil {
		return nil, fmt.Errorf("destination site: %w", appErr.ErrNotFound)
	}
	if opts.Filter == "" {
		opts.Filter = "textile"
	}
	return &Run{
		site:     site,
		users:    users,
		articles: articles,
		comments: comments,
		opts:     opts,
	}, nil
}

func (r *Run) Site() *model.Site {
	return r.site
}

func (r *Run) Counters() model.ImportCounters {
	return r.counters
}

// DestinationArticle returns the id of the article created for a source key.
func (r *Run) DestinationArticle(key string) (string, bool) {
	id, ok := r.articleIndex[key]
	return id, ok
}

// UserByLogin returns the destination user with login, or nil.
func (r *Run) UserByLogin(ctx context.Context, login string) (*model.User, error) {
	if login == "" {
		return nil, nil
	}
	user, err := r.users.GetByLogin(ctx, login)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// DefaultUser is the first member of the site, or the first user at all
// when the site has no members. It is resolved once per run.
func (r *Run) DefaultUser(ctx context.Context) (*model.User, error) {
	if r.defaultLoaded {
		return r.defaultUser, nil
	}
	members, err := r.users.ListMembers(ctx, r.site.ID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		members, err = r.users.List(ctx, 1)
		if err != nil {
			return nil, err
		}
	}
	if len(members) > 0 {
		r.defaultUser = &members[0]
	}
	r.defaultLoaded = true
	return r.defaultUser, nil
}

func (r *Run) articleFilter() string {
	return filter.Normalize(r.opts.Filter)
}

// Convert migrates users, articles and comments of src in that order.
func Convert(ctx context.Context, run *Run, src Source, mappers Mappers) (model.ImportCounters, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("source", src.Name()), zap.String("site_id", run.site.ID))
	users, err := src.Users(ctx)
	if err != nil {
		return run.Counters(), fmt.Errorf("load users: %w", err)
	}
	if _, err := run.ImportUsers(ctx, users, mappers.User); err != nil {
		return run.Counters(), err
	}
	articles, err := src.Articles(ctx)
	if err != nil {
		return run.Counters(), fmt.Errorf("load articles: %w", err)
	}
	if _, err := run.ImportArticles(ctx, articles, mappers.Article); err != nil {
		return run.Counters(), err
	}
	if _, err := run.ImportComments(ctx, articles, src.CommentsFor, mappers.Comment); err != nil {
		return run.Counters(), err
	}
	counters := run.Counters()
	logger.Info("import finished",
		zap.Int("users", counters.Users),
		zap.Int("articles", counters.Articles),
		zap.Int("comments", counters.Comments))
	return counters, nil
}
