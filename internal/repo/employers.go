package repo

import (
	"context"
	"fmt"

	"maptss.ao/internal/model"
	"maptss.ao/internal/store"
)

type Employers struct {
	*store.Collection[model.Employer]
}

type Internships struct {
	*store.Collection[model.Internship]
}

func (r *Internships) ByEmployer(ctx context.Context, employerID string) ([]model.Internship, error) {
	return r.FindByField(ctx, "empregadorId", employerID)
}

func (r *Internships) ByGraduate(ctx context.Context, graduateID string) ([]model.Internship, error) {
	return r.FindByField(ctx, "graduateId", graduateID)
}

func (r *Internships) SetStatus(ctx context.Context, id, status string) (model.Internship, error) {
	if status != model.InternshipActive && status != model.InternshipClosed {
		return model.Internship{}, fmt.Errorf("%w: internship status %q", ErrInvalidStatus, status)
	}
	return r.Update(ctx, id, func(i *model.Internship) error {
		i.Status = status
		return nil
	})
}

type JobListings struct {
	*store.Collection[model.JobListing]
}

func (r *JobListings) ByEmployer(ctx context.Context, employerID string) ([]model.JobListing, error) {
	return r.FindByField(ctx, "empregadorId", employerID)
}

// Active returns listings still open for applications.
func (r *JobListings) Active(ctx context.Context) ([]model.JobListing, error) {
	return r.FindByField(ctx, "status", model.JobOpen)
}

func (r *JobListings) SetStatus(ctx context.Context, id, status string) (model.JobListing, error) {
	if status != model.JobOpen && status != model.JobClosed {
		return model.JobListing{}, fmt.Errorf("%w: job listing status %q", ErrInvalidStatus, status)
	}
	return r.Update(ctx, id, func(j *model.JobListing) error {
		j.Status = status
		return nil
	})
}

type Verifications struct {
	*store.Collection[model.Verification]
}

func (r *Verifications) ByEmployer(ctx context.Context, employerID string) ([]model.Verification, error) {
	return r.FindByField(ctx, "empregadorId", employerID)
}

func (r *Verifications) CountByEmployer(ctx context.Context, employerID string) (int, error) {
	items, err := r.ByEmployer(ctx, employerID)
	return len(items), err
}
