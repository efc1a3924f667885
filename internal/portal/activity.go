package portal

import (
	"context"

	"maptss.ao/internal/model"
)

// RecentActivity returns the latest activities, newest first.
func (s *Service) RecentActivity(ctx context.Context) ([]model.Activity, error) {
	acts, err := s.repos.Activities.Recent(ctx, RecentActivityLimit)
	observe("recent_activity", err)
	return acts, err
}

// MonthlyRegistrationStats counts registrations per submission month,
// keyed "YYYY-MM" in UTC.
func (s *Service) MonthlyRegistrationStats(ctx context.Context) (map[string]int, error) {
	regs, err := s.repos.Registrations.All(ctx)
	observe("monthly_registration_stats", err)
	if err != nil {
		return nil, err
	}
	return monthlyCounts(regs), nil
}

// monthlyCounts skips registrations without a submission time.
func monthlyCounts(regs []model.Registration) map[string]int {
	out := make(map[string]int)
	for _, r := range regs {
		if r.SubmittedAt.IsZero() {
			continue
		}
		out[r.SubmittedAt.UTC().Format("2006-01")]++
	}
	return out
}
