package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mephisto/internal/model"
	"github.com/xxxsen/mephisto/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
)

var assetColumns = []string{
	"id", "site_id", "parent_id", "thumbnail", "dir", "filename", "title", "content_type",
	"size", "width", "height", "thumbnails_count", "ctime", "mtime",
}

const assetSelect = `SELECT id, site_id, parent_id, thumbnail, dir, filename, title, content_type,
	size, width, height, thumbnails_count, ctime, mtime FROM assets`

type AssetRepo struct {
	db *sql.DB
}

func NewAssetRepo(db *sql.DB) *AssetRepo {
	return &AssetRepo{db: db}
}

func (r *AssetRepo) Create(ctx context.Context, asset *model.Asset) error {
	data := map[string]interface{}{
		"id":               asset.ID,
		"site_id":          asset.SiteID,
		"parent_id":        dbutil.NullString(asset.ParentID),
		"thumbnail":        asset.Thumbnail,
		"dir":              asset.Dir,
		"filename":         asset.Filename,
		"title":            asset.Title,
		"content_type":     asset.ContentType,
		"size":             asset.Size,
		"width":            asset.Width,
		"height":           asset.Height,
		"thumbnails_count": asset.ThumbnailsCount,
		"ctime":            asset.Ctime,
		"mtime":            asset.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("assets", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return translateWriteErr(err)
	}
	return nil
}

// GetByID scopes the lookup to siteID unless it is empty.
func (r *AssetRepo) GetByID(ctx context.Context, siteID, assetID string) (*model.Asset, error) {
	where := map[string]interface{}{"id": assetID}
	if siteID != "" {
		where["site_id"] = siteID
	}
	items, err := r.selectAssets(ctx, where)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &items[0], nil
}

// ListBySite returns the top level assets of a site, newest first. kindCond
// is an optional predicate over content_type with "?" placeholders.
func (r *AssetRepo) ListBySite(ctx context.Context, siteID, query, kindCond string, kindArgs []interface{}, limit, offset uint) ([]model.Asset, error) {
	sqlStr := assetSelect + ` WHERE site_id = ? AND parent_id IS NULL`
	args := []interface{}{siteID}
	if query != "" {
		sqlStr += ` AND (filename ILIKE ? OR title ILIKE ?)`
		like := "%" + query + "%"
		args = append(args, like, like)
	}
	if kindCond != "" {
		sqlStr += ` AND (` + kindCond + `)`
		args = append(args, kindArgs...)
	}
	sqlStr += ` ORDER BY mtime DESC, id`
	if limit > 0 {
		sqlStr += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	return r.query(ctx, sqlStr, args)
}

func (r *AssetRepo) ListThumbnails(ctx context.Context, parentID string) ([]model.Asset, error) {
	sqlStr := assetSelect + ` WHERE parent_id = ? ORDER BY thumbnail`
	return r.query(ctx, sqlStr, []interface{}{parentID})
}

// ListMissingThumbnails returns top level assets of the given types that
// have no thumbnails yet, oldest first.
func (r *AssetRepo) ListMissingThumbnails(ctx context.Context, contentTypes []string, limit uint) ([]model.Asset, error) {
	if len(contentTypes) == 0 {
		return []model.Asset{}, nil
	}
	where := map[string]interface{}{
		"parent_id":        builder.IsNull,
		"thumbnails_count": 0,
		"content_type in":  contentTypes,
		"_orderby":         "ctime asc",
	}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	return r.selectAssets(ctx, where)
}

func (r *AssetRepo) Update(ctx context.Context, asset *model.Asset) error {
	where := map[string]interface{}{"id": asset.ID}
	update := map[string]interface{}{
		"filename": asset.Filename,
		"title":    asset.Title,
		"mtime":    asset.Mtime,
	}
	return r.exec(ctx, where, update)
}

func (r *AssetRepo) UpdateThumbnailsCount(ctx context.Context, assetID string, count int) error {
	where := map[string]interface{}{"id": assetID}
	update := map[string]interface{}{"thumbnails_count": count}
	return r.exec(ctx, where, update)
}

func (r *AssetRepo) Delete(ctx context.Context, assetID string) error {
	sqlStr, args, err := builder.BuildDelete("assets", map[string]interface{}{"id": assetID})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *AssetRepo) exec(ctx context.Context, where, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate("assets", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return translateWriteErr(err)
	}
	return expectAffected(res)
}

func (r *AssetRepo) selectAssets(ctx context.Context, where map[string]interface{}) ([]model.Asset, error) {
	sqlStr, args, err := builder.BuildSelect("assets", where, assetColumns)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, sqlStr, args)
}

func (r *AssetRepo) query(ctx context.Context, sqlStr string, args []interface{}) ([]model.Asset, error) {
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.Asset, 0)
	for rows.Next() {
		var item model.Asset
		var parentID sql.NullString
		if err := rows.Scan(&item.ID, &item.SiteID, &parentID, &item.Thumbnail, &item.Dir, &item.Filename,
			&item.Title, &item.ContentType, &item.Size, &item.Width, &item.Height, &item.ThumbnailsCount,
			&item.Ctime, &item.Mtime); err != nil {
			return nil, err
		}
		item.ParentID = parentID.String
		items = append(items, item)
	}
	return items, rows.Err()
}
