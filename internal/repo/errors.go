package repo

import (
	"database/sql"
	"fmt"

	"github.com/xxxsen/mephisto/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mephisto/internal/pkg/errors"
)

// translateWriteErr maps unique violations to ErrConflict and dangling
// references to ErrInvalid.
func translateWriteErr(err error) error {
	switch {
	case err == nil:
		return nil
	case dbutil.IsConflict(err):
		return appErr.ErrConflict
	case dbutil.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %v", appErr.ErrInvalid, err)
	default:
		return err
	}
}

func expectAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}
