package portal

import (
	"context"
	"errors"
	"fmt"

	"maptss.ao/internal/model"
	"maptss.ao/internal/store"
)

type CitizenStats struct {
	TotalRegistrations    int `json:"totalRegistrations"`
	ApprovedRegistrations int `json:"approvedRegistrations"`
	PendingRegistrations  int `json:"pendingRegistrations"`
	NearbyCentersCount    int `json:"nearbyCentersCount"`
}

type CitizenDashboard struct {
	Citizen       model.Citizen        `json:"citizen"`
	Registrations []model.Registration `json:"registrations"`
	NearbyCenters []NearbyCenter       `json:"nearbyCenters"`
	Stats         CitizenStats         `json:"stats"`
}

// CitizenDashboard summarises a citizen's registrations and the centers near
// their home. Citizens without coordinates get no nearby centers.
func (s *Service) CitizenDashboard(ctx context.Context, citizenID string) (d CitizenDashboard, err error) {
	defer func() { observe("citizen_dashboard", err) }()

	citizen, err := s.repos.Citizens.MustGet(ctx, citizenID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return CitizenDashboard{}, fmt.Errorf("%w: %s", ErrCitizenNotFound, citizenID)
	}
	if err != nil {
		return CitizenDashboard{}, err
	}
	regs, err := s.repos.Registrations.ByCitizen(ctx, citizenID)
	if err != nil {
		return CitizenDashboard{}, err
	}
	nearby := []NearbyCenter{}
	if citizen.Location != nil {
		centers, err := s.repos.Centers.All(ctx)
		if err != nil {
			return CitizenDashboard{}, err
		}
		nearby = s.rankByDistance(centers, *citizen.Location, 0)
	}
	counts := countByStatus(regs)
	return CitizenDashboard{
		Citizen:       citizen,
		Registrations: regs,
		NearbyCenters: nearby,
		Stats: CitizenStats{
			TotalRegistrations:    len(regs),
			ApprovedRegistrations: counts[model.RegistrationApproved],
			PendingRegistrations:  counts[model.RegistrationPending],
			NearbyCentersCount:    len(nearby),
		},
	}, nil
}

type ManagerStats struct {
	TotalRegistrations    int `json:"totalRegistrations"`
	ApprovedRegistrations int `json:"approvedRegistrations"`
	PendingRegistrations  int `json:"pendingRegistrations"`
	RejectedRegistrations int `json:"rejectedRegistrations"`
	ActiveCenters         int `json:"activeCenters"`
	TotalCenters          int `json:"totalCenters"`
}

type ManagerDashboard struct {
	Stats          ManagerStats     `json:"stats"`
	RecentActivity []model.Activity `json:"recentActivity"`
	MonthlyStats   map[string]int   `json:"monthlyStats"`
}

// ManagerDashboard aggregates registration and center counts for gestores.
func (s *Service) ManagerDashboard(ctx context.Context) (d ManagerDashboard, err error) {
	defer func() { observe("manager_dashboard", err) }()

	regs, err := s.repos.Registrations.All(ctx)
	if err != nil {
		return ManagerDashboard{}, err
	}
	centers, err := s.repos.Centers.All(ctx)
	if err != nil {
		return ManagerDashboard{}, err
	}
	recent, err := s.repos.Activities.Recent(ctx, RecentActivityLimit)
	if err != nil {
		return ManagerDashboard{}, err
	}
	counts := countByStatus(regs)
	active := 0
	for _, c := range centers {
		if c.Status == model.CenterActive {
			active++
		}
	}
	return ManagerDashboard{
		Stats: ManagerStats{
			TotalRegistrations:    len(regs),
			ApprovedRegistrations: counts[model.RegistrationApproved],
			PendingRegistrations:  counts[model.RegistrationPending],
			RejectedRegistrations: counts[model.RegistrationRejected],
			ActiveCenters:         active,
			TotalCenters:          len(centers),
		},
		RecentActivity: recent,
		MonthlyStats:   monthlyCounts(regs),
	}, nil
}

type EmployerStats struct {
	AvailableGraduates   int `json:"availableGraduates"`
	ActiveInternships    int `json:"activeInternships"`
	OpenJobListings      int `json:"openJobListings"`
	CertificatesVerified int `json:"certificatesVerified"`
}

type EmployerDashboard struct {
	// Employer is nil when the account has no employer profile yet.
	Employer        *model.Employer  `json:"empregador"`
	Stats           EmployerStats    `json:"stats"`
	RecentGraduates []model.Graduate `json:"recentGraduates"`
	RecentActivity  []model.Activity `json:"recentActivity"`
}

// EmployerDashboard summarises the talent pool and the employer's own
// internships, listings and verifications.
func (s *Service) EmployerDashboard(ctx context.Context, employerID string) (d EmployerDashboard, err error) {
	defer func() { observe("employer_dashboard", err) }()

	var employer *model.Employer
	if e, ok, err := s.repos.Employers.Get(ctx, employerID); err != nil {
		return EmployerDashboard{}, err
	} else if ok {
		employer = &e
	}
	graduates, err := s.repos.Graduates.Certified(ctx)
	if err != nil {
		return EmployerDashboard{}, err
	}
	internships, err := s.repos.Internships.ByEmployer(ctx, employerID)
	if err != nil {
		return EmployerDashboard{}, err
	}
	listings, err := s.repos.JobListings.ByEmployer(ctx, employerID)
	if err != nil {
		return EmployerDashboard{}, err
	}
	verified, err := s.repos.Verifications.CountByEmployer(ctx, employerID)
	if err != nil {
		return EmployerDashboard{}, err
	}
	recent, err := s.repos.Activities.ByUser(ctx, employerID, employerActivityLimit)
	if err != nil {
		return EmployerDashboard{}, err
	}

	stats := EmployerStats{AvailableGraduates: len(graduates), CertificatesVerified: verified}
	for _, in := range internships {
		if in.Status == model.InternshipActive {
			stats.ActiveInternships++
		}
	}
	for _, jl := range listings {
		if jl.Status == model.JobOpen {
			stats.OpenJobListings++
		}
	}
	return EmployerDashboard{
		Employer:        employer,
		Stats:           stats,
		RecentGraduates: graduates[:min(len(graduates), recentGraduatesLimit)],
		RecentActivity:  recent,
	}, nil
}

func countByStatus(regs []model.Registration) map[model.RegistrationStatus]int {
	out := make(map[model.RegistrationStatus]int, 3)
	for _, r := range regs {
		out[r.Status]++
	}
	return out
}
