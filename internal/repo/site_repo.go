package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mephisto/internal/model"
	"github.com/xxxsen/mephisto/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
)

var siteColumns = []string{"id", "title", "host", "filter", "ctime", "mtime"}

type SiteRepo struct {
	db *sql.DB
}

func NewSiteRepo(db *sql.DB) *SiteRepo {
	return &SiteRepo{db: db}
}

func (r *SiteRepo) Create(ctx context.Context, site *model.Site) error {
	data := map[string]interface{}{
		"id":     site.ID,
		"title":  site.Title,
		"host":   site.Host,
		"filter": site.Filter,
		"ctime":  site.Ctime,
		"mtime":  site.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("sites", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return translateWriteErr(err)
}

func (r *SiteRepo) GetByID(ctx context.Context, siteID string) (*model.Site, error) {
	return r.getOne(ctx, map[string]interface{}{"id": siteID})
}

func (r *SiteRepo) GetByHost(ctx context.Context, host string) (*model.Site, error) {
	return r.getOne(ctx, map[string]interface{}{"host": host})
}

func (r *SiteRepo) List(ctx context.Context) ([]model.Site, error) {
	return r.list(ctx, map[string]interface{}{"_orderby": "ctime asc, id asc"})
}

func (r *SiteRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.Site, error) {
	items, err := r.list(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &items[0], nil
}

func (r *SiteRepo) list(ctx context.Context, where map[string]interface{}) ([]model.Site, error) {
	sqlStr, args, err := builder.BuildSelect("sites", where, siteColumns)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.Site, 0)
	for rows.Next() {
		var item model.Site
		if err := rows.Scan(&item.ID, &item.Title, &item.Host, &item.Filter, &item.Ctime, &item.Mtime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
