package converter

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mephisto/internal/model"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
)

// CommentsFunc enumerates the comments of a source article.
type CommentsFunc func(ctx context.Context, article *SourceArticle) ([]*SourceComment, error)

// commentRecovery is tried in order; only the first rejected field that has
// not been replaced yet is replaced per attempt.
var commentRecovery = []struct {
	field string
	note  string
	apply func(src *SourceComment)
}{
	{"author_email", "retrying with new email", func(src *SourceComment) { src.AuthorEmail = "invalid@" + placeholderEmailDomain }},
	{"author_url", "retrying with new URL", func(src *SourceComment) { src.AuthorURL = "http://nowhere.com/" }},
	{"author", "retrying with new author name", func(src *SourceComment) { src.Author = "unknown" }},
	{"body", "retrying with blank body", func(src *SourceComment) { src.Body = "empty" }},
}

// ImportComments creates the comments of every source article. It needs the
// article mapping of ImportArticles; comments of articles the mapper skipped
// are skipped too.
func (r *Run) ImportComments(ctx context.Context, articles []*SourceArticle, commentsFor CommentsFunc, mapFn CommentMapper) (int, error) {
	if r.articleIndex == nil {
		return 0, appErr.ErrArticlesNotImported
	}
	logger := logutil.GetLogger(ctx)
	created := 0
	for _, src := range articles {
		if src == nil {
			continue
		}
		articleID, ok := r.articleIndex[src.Key]
		if !ok {
			if _, skipped := r.skippedArticles[src.Key]; skipped {
				logger.Warn("article was skipped, skipping its comments", zap.String("source_key", src.Key))
				continue
			}
			return created, fmt.Errorf("source article %q: %w", src.Key, appErr.ErrArticlesNotImported)
		}
		comments, err := commentsFor(ctx, src)
		if err != nil {
			return created, fmt.Errorf("load comments of %q: %w", src.Key, err)
		}
		for _, comment := range comments {
			outcome, err := r.ImportComment(ctx, articleID, comment, mapFn)
			if outcome.Created() {
				created++
			}
			if err != nil {
				return created, err
			}
		}
	}
	logger.Info(fmt.Sprintf("migrated %d comment(s)", r.counters.Comments))
	return created, nil
}

// ImportComment creates one approved comment on the destination article.
// Known bad fields are replaced with placeholders, each at most once. A
// comment that needed a replacement is stored, then reported as an error
// that stops the run unless the run is lenient.
func (r *Run) ImportComment(ctx context.Context, articleID string, in *SourceComment, mapFn CommentMapper) (model.ImportOutcome, error) {
	if in == nil {
		return model.OutcomeSkipped, nil
	}
	record := *in
	src := &record
	logger := logutil.GetLogger(ctx).With(zap.String("article_id", articleID))
	logger.Debug("adding comment")
	replaced := make(map[string]bool, len(commentRecovery))
	for {
		comment, err := mapFn(ctx, r, src)
		if err != nil {
			return model.OutcomeFatal, fmt.Errorf("map comment: %w", err)
		}
		if comment == nil {
			return model.OutcomeSkipped, nil
		}
		comment.ArticleID = articleID
		comment.SiteID = r.site.ID
		if comment.Filter == "" {
			comment.Filter = r.site.Filter
		}
		if comment.AuthorIP == "" {
			comment.AuthorIP = defaultAuthorIP
		}
		comment.Approved = true
		err = r.comments.Create(ctx, comment)
		if err == nil {
			r.counters.Comments++
			if len(replaced) == 0 {
				return model.OutcomePersisted, nil
			}
			if r.opts.LenientCommentRecovery {
				return model.OutcomeRecovered, nil
			}
			logger.Error("comment needed replacements", zap.Any("replaced", replacedFields(replaced)), zap.Any("comment", comment))
			return model.OutcomeRecovered, fmt.Errorf("comment %s on article %s had invalid %v: %w",
				comment.ID, articleID, replacedFields(replaced), appErr.ErrInvalid)
		}
		verr, ok := appErr.AsValidation(err)
		if !ok {
			return model.OutcomeFatal, fmt.Errorf("create comment: %w", err)
		}
		if r.recoverComment(ctx, src, verr, replaced) {
			continue
		}
		logger.Error("invalid comment", zap.Strings("errors", verr.Messages()), zap.Any("comment", comment))
		return model.OutcomeFatal, fmt.Errorf("create comment on article %s: %w", articleID, err)
	}
}

func (r *Run) recoverComment(ctx context.Context, src *SourceComment, verr *appErr.ValidationError, replaced map[string]bool) bool {
	for _, step := range commentRecovery {
		if !verr.Has(step.field) || replaced[step.field] {
			continue
		}
		logutil.GetLogger(ctx).Info(step.note, zap.String("field", step.field))
		step.apply(src)
		replaced[step.field] = true
		return true
	}
	return false
}

// replacedFields lists the replaced fields in recovery order.
func replacedFields(replaced map[string]bool) []string {
	fields := make([]string, 0, len(replaced))
	for _, step := range commentRecovery {
		if replaced[step.field] {
			fields = append(fields, step.field)
		}
	}
	return fields
}
