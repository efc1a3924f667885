package repo

import (
	"context"
	"fmt"

	"maptss.ao/internal/model"
	"maptss.ao/internal/store"
)

type Centers struct {
	*store.Collection[model.Center]
}

func (r *Centers) ByProvince(ctx context.Context, province string) ([]model.Center, error) {
	return r.Lookup(ctx, IndexCentersProvince, province)
}

func (r *Centers) Active(ctx context.Context) ([]model.Center, error) {
	return r.FindByField(ctx, "status", model.CenterActive)
}

// SetStatus switches a center between active and inactive.
func (r *Centers) SetStatus(ctx context.Context, id, status string) (model.Center, error) {
	if status != model.CenterActive && status != model.CenterInactive {
		return model.Center{}, fmt.Errorf("%w: center status %q", ErrInvalidStatus, status)
	}
	return r.Update(ctx, id, func(c *model.Center) error {
		c.Status = status
		return nil
	})
}

type Courses struct {
	*store.Collection[model.Course]
}

func (r *Courses) ByCenter(ctx context.Context, centerID string) ([]model.Course, error) {
	return r.FindByField(ctx, "centerId", centerID)
}

func (r *Courses) ByArea(ctx context.Context, area string) ([]model.Course, error) {
	return r.FindByField(ctx, "area", area)
}
