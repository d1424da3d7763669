package converter

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mephisto/internal/model"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
)

// ImportArticles creates the articles and records which destination article
// each source key became. It resets the mapping of any earlier call.
func (r *Run) ImportArticles(ctx context.Context, articles []*SourceArticle, mapFn ArticleMapper) (int, error) {
	r.articleIndex = make(map[string]string, len(articles))
	r.skippedArticles = make(map[string]struct{})
	created := 0
	for _, src := range articles {
		outcome, err := r.ImportArticle(ctx, src, mapFn)
		if err != nil {
			return created, err
		}
		if outcome.Created() {
			created++
		}
	}
	logutil.GetLogger(ctx).Info(fmt.Sprintf("migrated %d article(s)", r.counters.Articles))
	return created, nil
}

// ImportArticle creates one article. Rejections are fatal and logged with
// the full record.
func (r *Run) ImportArticle(ctx context.Context, src *SourceArticle, mapFn ArticleMapper) (model.ImportOutcome, error) {
	if r.articleIndex == nil {
		r.articleIndex = make(map[string]string)
		r.skippedArticles = make(map[string]struct{})
	}
	if src == nil {
		return model.OutcomeSkipped, nil
	}
	if src.Key == "" {
		return model.OutcomeFatal, fmt.Errorf("source article %q has no key", src.Title)
	}
	if _, ok := r.articleIndex[src.Key]; ok {
		return model.OutcomeFatal, fmt.Errorf("source article key %q is not unique", src.Key)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("source_key", src.Key))
	article, err := mapFn(ctx, r, src)
	if err != nil {
		return model.OutcomeFatal, fmt.Errorf("map article %q: %w", src.Key, err)
	}
	if article == nil {
		r.skippedArticles[src.Key] = struct{}{}
		return model.OutcomeSkipped, nil
	}
	article.SiteID = r.site.ID
	if article.UserID == "" || article.UpdaterID == "" {
		def, err := r.DefaultUser(ctx)
		if err != nil {
			return model.OutcomeFatal, err
		}
		if def != nil {
			if article.UserID == "" {
				article.UserID = def.ID
			}
			if article.UpdaterID == "" {
				article.UpdaterID = def.ID
			}
		}
	}
	if article.Filter == "" {
		article.Filter = r.articleFilter()
	}
	if article.AuthorIP == "" {
		article.AuthorIP = defaultAuthorIP
	}
	if err := r.articles.Create(ctx, article); err != nil {
		if verr, ok := appErr.AsValidation(err); ok {
			logger.Error("invalid article", zap.Strings("errors", verr.Messages()), zap.Any("article", article))
		}
		return model.OutcomeFatal, fmt.Errorf("create article %q: %w", src.Key, err)
	}
	r.articleIndex[src.Key] = article.ID
	r.counters.Articles++
	return model.OutcomePersisted, nil
}
