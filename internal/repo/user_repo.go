package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mephisto/internal/model"
	"github.com/xxxsen/mephisto/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
)

var userColumns = []string{"id", "login", "email", "display_name", "password_hash", "admin", "ctime", "mtime"}

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	data := map[string]interface{}{
		"id":            user.ID,
		"login":         user.Login,
		"email":         user.Email,
		"display_name":  user.DisplayName,
		"password_hash": user.PasswordHash,
		"admin":         user.Admin,
		"ctime":         user.Ctime,
		"mtime":         user.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("users", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return translateWriteErr(err)
}

func (r *UserRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"id": userID})
}

func (r *UserRepo) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"login": login})
}

// List returns users in creation order.
func (r *UserRepo) List(ctx context.Context, limit uint) ([]model.User, error) {
	where := map[string]interface{}{"_orderby": "ctime asc, id asc"}
	if limit > 0 {
		where["_limit"] = []uint{0, limit}
	}
	sqlStr, args, err := builder.BuildSelect("users", where, userColumns)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, sqlStr, args)
}

func (r *UserRepo) AddMembership(ctx context.Context, m *model.Membership) error {
	data := map[string]interface{}{
		"site_id": m.SiteID,
		"user_id": m.UserID,
		"admin":   m.Admin,
		"ctime":   m.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("memberships", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return translateWriteErr(err)
}

func (r *UserRepo) GetMembership(ctx context.Context, siteID, userID string) (*model.Membership, error) {
	where := map[string]interface{}{"site_id": siteID, "user_id": userID}
	sqlStr, args, err := builder.BuildSelect("memberships", where, []string{"site_id", "user_id", "admin", "ctime"})
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
	var m model.Membership
	if err := rows.Scan(&m.SiteID, &m.UserID, &m.Admin, &m.Ctime); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMembers returns the members of a site in the order they joined.
func (r *UserRepo) ListMembers(ctx context.Context, siteID string) ([]model.User, error) {
	sqlStr := `
		SELECT u.id, u.login, u.email, u.display_name, u.password_hash, u.admin, u.ctime, u.mtime
		FROM users u
		JOIN memberships m ON m.user_id = u.id
		WHERE m.site_id = ?
		ORDER BY m.ctime ASC, u.id ASC
	`
	return r.query(ctx, sqlStr, []interface{}{siteID})
}

func (r *UserRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.User, error) {
	sqlStr, args, err := builder.BuildSelect("users", where, userColumns)
	if err != nil {
		return nil, err
	}
	items, err := r.query(ctx, sqlStr, args)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, appErr.ErrNotFound
	}
	return &items[0], nil
}

func (r *UserRepo) query(ctx context.Context, sqlStr string, args []interface{}) ([]model.User, error) {
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.User, 0)
	for rows.Next() {
		var user model.User
		if err := rows.Scan(&user.ID, &user.Login, &user.Email, &user.DisplayName, &user.PasswordHash,
			&user.Admin, &user.Ctime, &user.Mtime); err != nil {
			return nil, err
		}
		items = append(items, user)
	}
	return items, rows.Err()
}
