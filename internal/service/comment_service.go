package service

import (
	"context"
	"strings"

	"github.com/xxxsen/mephisto/internal/filter"
	"github.com/xxxsen/mephisto/internal/model"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
	"github.com/xxxsen/mephisto/internal/pkg/timeutil"
	"github.com/xxxsen/mephisto/internal/pkg/validate"
)

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	ListByArticle(ctx context.Context, articleID string) ([]model.Comment, error)
}

type CommentService struct {
	comments CommentRepository
}

func NewCommentService(comments CommentRepository) *CommentService {
	return &CommentService{comments: comments}
}

func (s *CommentService) Create(ctx context.Context, comment *model.Comment) error {
	comment.Author = strings.TrimSpace(comment.Author)
	comment.AuthorEmail = strings.TrimSpace(comment.AuthorEmail)
	comment.AuthorURL = strings.TrimSpace(comment.AuthorURL)
	if strings.TrimSpace(comment.Body) == "" {
		comment.Body = ""
	}
	if err := validate.Struct(comment); err != nil {
		return err
	}
	if comment.ID == "" {
		comment.ID = newID()
	}
	if comment.Ctime == 0 {
		comment.Ctime = timeutil.NowUnix()
	}
	html, err := filter.Render(comment.Filter, comment.Body)
	if err != nil {
		return appErr.NewValidationError("body", "could not be rendered")
	}
	comment.BodyHTML = html
	if err := s.comments.Create(ctx, comment); err != nil {
		return referenceError(err, "article_id")
	}
	return nil
}

func (s *CommentService) ListByArticle(ctx context.Context, articleID string) ([]model.Comment, error) {
	return s.comments.ListByArticle(ctx, articleID)
}
