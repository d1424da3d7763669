package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mephisto/internal/model"
	"github.com/xxxsen/mephisto/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
)

var articleColumns = []string{
	"id", "site_id", "user_id", "updater_id", "title", "permalink", "excerpt", "body", "body_html",
	"filter", "author_ip", "published_at", "ctime", "mtime",
}

type ArticleRepo struct {
	db *sql.DB
}

func NewArticleRepo(db *sql.DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

func (r *ArticleRepo) Create(ctx context.Context, article *model.Article) error {
	data := map[string]interface{}{
		"id":           article.ID,
		"site_id":      article.SiteID,
		"user_id":      article.UserID,
		"updater_id":   dbutil.NullString(article.UpdaterID),
		"title":        article.Title,
		"permalink":    article.Permalink,
		"excerpt":      article.Excerpt,
		"body":         article.Body,
		"body_html":    article.BodyHTML,
		"filter":       article.Filter,
		"author_ip":    article.AuthorIP,
		"published_at": article.PublishedAt,
		"ctime":        article.Ctime,
		"mtime":        article.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("articles", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return translateWriteErr(err)
}

func (r *ArticleRepo) GetByID(ctx context.Context, siteID, articleID string) (*model.Article, error) {
	where := map[string]interface{}{"id": articleID, "site_id": siteID}
	sqlStr, args, err := builder.BuildSelect("articles", where, articleColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	var item model.Article
	var updaterID sql.NullString
	if err := rows.Scan(&item.ID, &item.SiteID, &item.UserID, &updaterID, &item.Title, &item.Permalink,
		&item.Excerpt, &item.Body, &item.BodyHTML, &item.Filter, &item.AuthorIP, &item.PublishedAt,
		&item.Ctime, &item.Mtime); err != nil {
		return nil, err
	}
	item.UpdaterID = updaterID.String
	return &item, nil
}
