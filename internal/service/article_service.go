package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/xxxsen/mephisto/internal/filter"
	"github.com/xxxsen/mephisto/internal/model"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
	"github.com/xxxsen/mephisto/internal/pkg/timeutil"
	"github.com/xxxsen/mephisto/internal/pkg/validate"
)

type ArticleRepository interface {
	Create(ctx context.Context, article *model.Article) error
	GetByID(ctx context.Context, siteID, articleID string) (*model.Article, error)
}

type ArticleService struct {
	articles ArticleRepository
}

func NewArticleService(articles ArticleRepository) *ArticleService {
	return &ArticleService{articles: articles}
}

// Create validates the article, derives a permalink from the title when none
// is set and renders the body with the article's filter.
func (s *ArticleService) Create(ctx context.Context, article *model.Article) error {
	article.Title = strings.TrimSpace(article.Title)
	if err := validate.Struct(article); err != nil {
		return err
	}
	now := timeutil.NowUnix()
	if article.ID == "" {
		article.ID = newID()
	}
	if article.UpdaterID == "" {
		article.UpdaterID = article.UserID
	}
	if article.Permalink == "" {
		article.Permalink = permalinkOf(article.Title)
	}
	if article.Ctime == 0 {
		article.Ctime = now
	}
	if article.Mtime == 0 {
		article.Mtime = article.Ctime
	}
	html, err := filter.Render(article.Filter, article.Body)
	if err != nil {
		return appErr.NewValidationError("body", "could not be rendered")
	}
	article.BodyHTML = html
	if err := s.articles.Create(ctx, article); err != nil {
		return referenceError(err, "user_id")
	}
	return nil
}

func (s *ArticleService) Get(ctx context.Context, siteID, articleID string) (*model.Article, error) {
	return s.articles.GetByID(ctx, siteID, articleID)
}

var nonPermalinkChars = regexp.MustCompile(`[^a-z0-9]+`)

func permalinkOf(title string) string {
	slug := strings.ToLower(strings.ReplaceAll(title, "'", ""))
	slug = nonPermalinkChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// referenceError reports a dangling reference as a validation failure on
// field. Repositories flag those as ErrInvalid.
func referenceError(err error, field string) error {
	if _, ok := appErr.AsValidation(err); ok {
		return err
	}
	if errors.Is(err, appErr.ErrInvalid) {
		return appErr.NewValidationError(field, "does not exist")
	}
	return err
}
