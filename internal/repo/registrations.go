package repo

import (
	"context"
	"fmt"
	"time"

	"maptss.ao/internal/model"
	"maptss.ao/internal/store"
)

type Registrations struct {
	*store.Collection[model.Registration]
}

func (r *Registrations) ByCitizen(ctx context.Context, citizenID string) ([]model.Registration, error) {
	return r.Lookup(ctx, IndexRegCitizen, citizenID)
}

func (r *Registrations) ByStatus(ctx context.Context, status model.RegistrationStatus) ([]model.Registration, error) {
	return r.Lookup(ctx, IndexRegStatus, string(status))
}

func (r *Registrations) ByCenter(ctx context.Context, centerID string) ([]model.Registration, error) {
	return r.FindByField(ctx, "centerId", centerID)
}

func (r *Registrations) ByCourse(ctx context.Context, courseID string) ([]model.Registration, error) {
	return r.FindByField(ctx, "courseId", courseID)
}

// Transition moves a pending registration into a terminal state, stamping the
// actor and time. reason is kept for rejections only. A registration that is
// already approved or rejected fails with ErrInvalidTransition.
func (r *Registrations) Transition(ctx context.Context, id string, to model.RegistrationStatus, actorID, reason string, at time.Time) (model.Registration, error) {
	if !to.Terminal() {
		return model.Registration{}, fmt.Errorf("%w: cannot transition to %q", ErrInvalidStatus, to)
	}
	return r.Update(ctx, id, func(reg *model.Registration) error {
		if reg.Status != model.RegistrationPending {
			return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, reg.Status)
		}
		reg.Status = to
		switch to {
		case model.RegistrationApproved:
			reg.ApprovedBy = actorID
			reg.ApprovedAt = at.UTC()
		case model.RegistrationRejected:
			reg.RejectedBy = actorID
			reg.RejectedAt = at.UTC()
			reg.RejectionReason = reason
		}
		return nil
	})
}
