package repositories

import (
	"errors"
	"strings"

	"github.com/tphan267/arqut-fleet/pkg/errs"
	"gorm.io/gorm"
)

// translate classifies a store error. Record-not-found and unique index
// violations become typed failures; anything else is returned as-is.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound("%s not found", what)
	}
	if isUniqueViolation(err) {
		return errs.Conflict(err, "%s already exists", what)
	}
	return err
}

// isUniqueViolation matches the translated gorm error and, for drivers that
// do not translate, the raw sqlite/postgres/mysql messages.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "unique constraint failed") ||
		strings.Contains(s, "duplicate key value") ||
		strings.Contains(s, "duplicate entry")
}
