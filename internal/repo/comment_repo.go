package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mephisto/internal/model"
	"github.com/xxxsen/mephisto/internal/pkg/dbutil"
)

var commentColumns = []string{
	"id", "article_id", "site_id", "author", "author_email", "author_url", "author_ip",
	"body", "body_html", "filter", "approved", "ctime",
}

type CommentRepo struct {
	db *sql.DB
}

func NewCommentRepo(db *sql.DB) *CommentRepo {
	return &CommentRepo{db: db}
}

func (r *CommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	data := map[string]interface{}{
		"id":           comment.ID,
		"article_id":   comment.ArticleID,
		"site_id":      comment.SiteID,
		"author":       comment.Author,
		"author_email": comment.AuthorEmail,
		"author_url":   comment.AuthorURL,
		"author_ip":    comment.AuthorIP,
		"body":         comment.Body,
		"body_html":    comment.BodyHTML,
		"filter":       comment.Filter,
		"approved":     comment.Approved,
		"ctime":        comment.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("comments", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return translateWriteErr(err)
}

func (r *CommentRepo) ListByArticle(ctx context.Context, articleID string) ([]model.Comment, error) {
	where := map[string]interface{}{"article_id": articleID, "_orderby": "ctime asc, id asc"}
	sqlStr, args, err := builder.BuildSelect("comments", where, commentColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.Comment, 0)
	for rows.Next() {
		var item model.Comment
		if err := rows.Scan(&item.ID, &item.ArticleID, &item.SiteID, &item.Author, &item.AuthorEmail,
			&item.AuthorURL, &item.AuthorIP, &item.Body, &item.BodyHTML, &item.Filter, &item.Approved,
			&item.Ctime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
