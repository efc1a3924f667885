package portal

import (
	"fmt"

	"maptss.ao/internal/errs"
)

var (
	ErrRegistrationNotFound  = fmt.Errorf("%w: registration", errs.ErrNotFound)
	ErrCitizenNotFound       = fmt.Errorf("%w: citizen", errs.ErrNotFound)
	ErrNotificationNotFound  = fmt.Errorf("%w: notification", errs.ErrNotFound)
	ErrInvalidRegistration   = fmt.Errorf("%w: invalid registration", errs.ErrValidation)
	ErrInvalidDocuments      = fmt.Errorf("%w: unknown document kind", errs.ErrValidation)
	ErrInvalidAgeRange       = fmt.Errorf("%w: age range must be \"min-max\"", errs.ErrValidation)
	ErrInvalidRequest        = fmt.Errorf("%w: invalid request", errs.ErrValidation)
	ErrUnsupportedReportType = fmt.Errorf("%w: report type not supported", errs.ErrValidation)
)
