package auth

import (
	"fmt"

	"maptss.ao/internal/errs"
)

var (
	ErrInvalidCredentials     = fmt.Errorf("%w: invalid credentials", errs.ErrAuth)
	ErrAccountDisabled        = fmt.Errorf("%w: account disabled", errs.ErrAuth)
	ErrInvalidCurrentPassword = fmt.Errorf("%w: current password is incorrect", errs.ErrAuth)
	ErrNotAuthenticated       = fmt.Errorf("%w: no active session", errs.ErrAuth)
	ErrSessionExpired         = fmt.Errorf("%w: session expired", errs.ErrAuth)
	ErrInvalidToken           = fmt.Errorf("%w: invalid token", errs.ErrAuth)
	ErrTooManyAttempts        = fmt.Errorf("%w: too many login attempts", errs.ErrAuth)
	ErrInvalidRole            = fmt.Errorf("%w: invalid role", errs.ErrValidation)
	ErrInvalidInput           = fmt.Errorf("%w: invalid input", errs.ErrValidation)
	ErrEmailAlreadyUsed       = fmt.Errorf("%w: email already in use", errs.ErrConflict)
	ErrUserNotFound           = fmt.Errorf("%w: user", errs.ErrNotFound)
)
