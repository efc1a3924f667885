package repo

import (
	"context"

	"maptss.ao/internal/model"
	"maptss.ao/internal/store"
)

type Graduates struct {
	*store.Collection[model.Graduate]
}

// Certified returns verified graduates, the only ones visible to employers.
func (r *Graduates) Certified(ctx context.Context) ([]model.Graduate, error) {
	return r.FindByField(ctx, "verified", true)
}

func (r *Graduates) ByCompetency(ctx context.Context, area string) ([]model.Graduate, error) {
	return r.Lookup(ctx, IndexGradCompetency, area)
}

func (r *Graduates) ByLocation(ctx context.Context, location string) ([]model.Graduate, error) {
	return r.FindByField(ctx, "location", location)
}

func (r *Graduates) SetVerified(ctx context.Context, id string, verified bool) (model.Graduate, error) {
	return r.Update(ctx, id, func(g *model.Graduate) error {
		g.Verified = verified
		return nil
	})
}

type Certificates struct {
	*store.Collection[model.Certificate]
}

// ByCode returns the certificate with the given human-checkable code.
func (r *Certificates) ByCode(ctx context.Context, code string) (model.Certificate, bool, error) {
	items, err := r.FindByField(ctx, "code", code)
	return first(items, err)
}

func (r *Certificates) ByStudent(ctx context.Context, studentID string) ([]model.Certificate, error) {
	return r.FindByField(ctx, "studentId", studentID)
}
