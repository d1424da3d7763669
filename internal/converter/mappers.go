package converter

import (
	"context"

	"github.com/xxxsen/mephisto/internal/model"
)

// A mapper builds the destination record for a source record. Returning a
// nil record skips the source record.
type (
	UserMapper    func(ctx context.Context, run *Run, src *SourceUser) (*model.User, error)
	ArticleMapper func(ctx context.Context, run *Run, src *SourceArticle) (*model.Article, error)
	CommentMapper func(ctx context.Context, run *Run, src *SourceComment) (*model.Comment, error)
)

type Mappers struct {
	User    UserMapper
	Article ArticleMapper
	Comment CommentMapper
}

func DefaultMappers() Mappers {
	return Mappers{
		User:    MapUser,
		Article: MapArticle,
		Comment: MapComment,
	}
}

func MapUser(ctx context.Context, run *Run, src *SourceUser) (*model.User, error) {
	return &model.User{
		Login:       src.Login,
		Email:       src.Email,
		DisplayName: src.DisplayName,
		Admin:       src.Admin,
	}, nil
}

// MapArticle attributes the article to the destination user with the
// source author's login when there is one.
func MapArticle(ctx context.Context, run *Run, src *SourceArticle) (*model.Article, error) {
	article := &model.Article{
		Title:       src.Title,
		Permalink:   src.Permalink,
		Excerpt:     src.Excerpt,
		Body:        src.Body,
		Filter:      src.Filter,
		PublishedAt: src.PublishedAt,
		Ctime:       src.CreatedAt,
	}
	author, err := run.UserByLogin(ctx, src.Author)
	if err != nil {
		return nil, err
	}
	if author != nil {
		article.UserID = author.ID
		article.UpdaterID = author.ID
	}
	return article, nil
}

func MapComment(ctx context.Context, run *Run, src *SourceComment) (*model.Comment, error) {
	return &model.Comment{
		Author:      src.Author,
		AuthorEmail: src.AuthorEmail,
		AuthorURL:   src.AuthorURL,
		AuthorIP:    src.AuthorIP,
		Body:        src.Body,
		Ctime:       src.CreatedAt,
	}, nil
}
