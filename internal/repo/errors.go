package repo

import (
	"fmt"

	"maptss.ao/internal/errs"
)

var (
	ErrInvalidTransition = fmt.Errorf("%w: registration is not pending", errs.ErrConflict)
	ErrInvalidStatus     = fmt.Errorf("%w: invalid status", errs.ErrValidation)
	ErrDuplicateBI       = fmt.Errorf("%w: identity document already registered", errs.ErrConflict)
)
