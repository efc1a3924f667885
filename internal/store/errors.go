package store

import (
	"fmt"

	"maptss.ao/internal/errs"
)

var (
	ErrUnknownCollection = fmt.Errorf("%w: unknown collection", errs.ErrValidation)
	ErrUnknownIndex      = fmt.Errorf("%w: unknown index", errs.ErrValidation)
	ErrMissingID         = fmt.Errorf("%w: record id is required", errs.ErrValidation)
	ErrRecordNotFound    = fmt.Errorf("%w: record", errs.ErrNotFound)
	ErrDuplicateID       = fmt.Errorf("%w: duplicate record id", errs.ErrValidation)
	ErrUniqueViolation   = fmt.Errorf("%w: unique index key already taken", errs.ErrConflict)
)
