package converter

import (
	"context"
	"fmt"
	"strings"

	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
)

// SourceUser is a user record of the blog being migrated.
type SourceUser struct {
	Login       string `json:"login"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Admin       bool   `json:"admin"`
}

// SourceArticle is an article of the blog being migrated. Key identifies it
// within the source and links its comments to the destination article.
type SourceArticle struct {
	Key         string           `json:"key"`
	Author      string           `json:"author"`
	Title       string           `json:"title"`
	Permalink   string           `json:"permalink"`
	Excerpt     string           `json:"excerpt"`
	Body        string           `json:"body"`
	Filter      string           `json:"filter"`
	PublishedAt int64            `json:"published_at"`
	CreatedAt   int64            `json:"created_at"`
	Comments    []*SourceComment `json:"comments"`
}

type SourceComment struct {
	Author      string `json:"author"`
	AuthorEmail string `json:"author_email"`
	AuthorURL   string `json:"author_url"`
	AuthorIP    string `json:"author_ip"`
	Body        string `json:"body"`
	CreatedAt   int64  `json:"created_at"`
}

// Source enumerates the records of a blog to migrate.
type Source interface {
	Name() string
	Users(ctx context.Context) ([]*SourceUser, error)
	Articles(ctx context.Context) ([]*SourceArticle, error)
	CommentsFor(ctx context.Context, article *SourceArticle) ([]*SourceComment, error)
}

// BaseSource fails every hook with ErrNotImplemented. Sources embed it and
// override what they support.
type BaseSource struct{}

func (BaseSource) Name() string {
	return "base"
}

func (BaseSource) Users(ctx context.Context) ([]*SourceUser, error) {
	return nil, appErr.ErrNotImplemented
}

func (BaseSource) Articles(ctx context.Context) ([]*SourceArticle, error) {
	return nil, appErr.ErrNotImplemented
}

func (BaseSource) CommentsFor(ctx context.Context, article *SourceArticle) ([]*SourceComment, error) {
	return nil, appErr.ErrNotImplemented
}

// OpenSource opens the dump at path with the named source format.
func OpenSource(kind, path string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "json":
		return LoadJSONSource(path)
	default:
		return nil, fmt.Errorf("unsupported source %q", kind)
	}
}
