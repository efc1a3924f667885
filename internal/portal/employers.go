package portal

import (
	"context"
	"strings"
	"time"

	"maptss.ao/internal/model"
)

type JobListingRequest struct {
	EmployerID  string `json:"empregadorId" validate:"required"`
	Title       string `json:"title" validate:"required,max=200"`
	Area        string `json:"area"`
	Location    string `json:"location"`
	Description string `json:"description" validate:"max=5000"`
}

// PostJobListing publishes an open job listing for an employer.
func (s *Service) PostJobListing(ctx context.Context, req JobListingRequest) (jl model.JobListing, err error) {
	defer func() { observe("post_job_listing", err) }()

	if err := check(ErrInvalidRequest, req); err != nil {
		return model.JobListing{}, err
	}
	return s.repos.JobListings.Upsert(ctx, model.JobListing{
		Meta:        model.Meta{ID: s.newID("job")},
		EmployerID:  req.EmployerID,
		Title:       strings.TrimSpace(req.Title),
		Area:        req.Area,
		Location:    req.Location,
		Status:      model.JobOpen,
		Description: req.Description,
	})
}

// CloseJobListing stops a listing from counting as open.
func (s *Service) CloseJobListing(ctx context.Context, id string) (model.JobListing, error) {
	jl, err := s.repos.JobListings.SetStatus(ctx, id, model.JobClosed)
	observe("close_job_listing", err)
	return jl, err
}

type InternshipRequest struct {
	EmployerID string    `json:"empregadorId" validate:"required"`
	GraduateID string    `json:"graduateId"`
	Title      string    `json:"title" validate:"required,max=200"`
	Area       string    `json:"area"`
	StartDate  time.Time `json:"startDate"`
}

// CreateInternship opens an active internship. When a graduate is named it
// must exist.
func (s *Service) CreateInternship(ctx context.Context, req InternshipRequest) (in model.Internship, err error) {
	defer func() { observe("create_internship", err) }()

	if err := check(ErrInvalidRequest, req); err != nil {
		return model.Internship{}, err
	}
	if req.GraduateID != "" {
		if _, err := s.repos.Graduates.MustGet(ctx, req.GraduateID); err != nil {
			return model.Internship{}, err
		}
	}
	start := req.StartDate
	if start.IsZero() {
		start = s.stamp()
	}
	return s.repos.Internships.Upsert(ctx, model.Internship{
		Meta:       model.Meta{ID: s.newID("intern")},
		EmployerID: req.EmployerID,
		GraduateID: req.GraduateID,
		Title:      strings.TrimSpace(req.Title),
		Area:       req.Area,
		Status:     model.InternshipActive,
		StartDate:  start.UTC(),
	})
}

// CloseInternship marks an internship closed.
func (s *Service) CloseInternship(ctx context.Context, id string) (model.Internship, error) {
	in, err := s.repos.Internships.SetStatus(ctx, id, model.InternshipClosed)
	observe("close_internship", err)
	return in, err
}
