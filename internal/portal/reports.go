package portal

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"maptss.ao/internal/model"
)

// Report types accepted by GenerateReport.
const (
	ReportRegistrationsMonthly = "registrations_monthly"
	ReportCentersPerformance   = "centers_performance"
	ReportGraduatesByArea      = "graduates_by_area"
)

// ReportTypes lists the supported report types.
var ReportTypes = []string{ReportRegistrationsMonthly, ReportCentersPerformance, ReportGraduatesByArea}

// ReportParams narrows a report. Zero values impose no filter. From and To
// bound registration submission times (To exclusive); Province applies to
// centers_performance.
type ReportParams struct {
	From     time.Time
	To       time.Time
	Province string
}

// Report is a rendered table.
type Report struct {
	Type        string     `json:"type"`
	GeneratedAt time.Time  `json:"generatedAt"`
	Columns     []string   `json:"columns"`
	Rows        [][]string `json:"rows"`
}

// GenerateReport builds the named report from current data.
func (s *Service) GenerateReport(ctx context.Context, reportType string, p ReportParams) (r Report, err error) {
	defer func() { observe("generate_report", err) }()

	var build func(context.Context, ReportParams) ([]string, [][]string, error)
	switch reportType {
	case ReportRegistrationsMonthly:
		build = s.registrationsMonthly
	case ReportCentersPerformance:
		build = s.centersPerformance
	case ReportGraduatesByArea:
		build = s.graduatesByArea
	default:
		return Report{}, fmt.Errorf("%w: %q", ErrUnsupportedReportType, reportType)
	}
	cols, rows, err := build(ctx, p)
	if err != nil {
		return Report{}, err
	}
	return Report{Type: reportType, GeneratedAt: s.stamp(), Columns: cols, Rows: rows}, nil
}

func (p ReportParams) submittedIn(reg model.Registration) bool {
	if !p.From.IsZero() && reg.SubmittedAt.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && !reg.SubmittedAt.Before(p.To) {
		return false
	}
	return true
}

func (s *Service) registrationsMonthly(ctx context.Context, p ReportParams) ([]string, [][]string, error) {
	regs, err := s.repos.Registrations.All(ctx)
	if err != nil {
		return nil, nil, err
	}
	type tally struct{ total, pending, approved, rejected int }
	months := map[string]*tally{}
	for _, reg := range regs {
		if reg.SubmittedAt.IsZero() || !p.submittedIn(reg) {
			continue
		}
		key := reg.SubmittedAt.UTC().Format("2006-01")
		t, ok := months[key]
		if !ok {
			t = &tally{}
			months[key] = t
		}
		t.total++
		switch reg.Status {
		case model.RegistrationPending:
			t.pending++
		case model.RegistrationApproved:
			t.approved++
		case model.RegistrationRejected:
			t.rejected++
		}
	}
	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		t := months[k]
		rows = append(rows, []string{k, strconv.Itoa(t.total), strconv.Itoa(t.pending), strconv.Itoa(t.approved), strconv.Itoa(t.rejected)})
	}
	return []string{"month", "total", "pending", "approved", "rejected"}, rows, nil
}

func (s *Service) centersPerformance(ctx context.Context, p ReportParams) ([]string, [][]string, error) {
	centers, err := s.Centers(ctx, CenterFilter{Province: p.Province})
	if err != nil {
		return nil, nil, err
	}
	regs, err := s.repos.Registrations.All(ctx)
	if err != nil {
		return nil, nil, err
	}
	type tally struct{ total, approved int }
	byCenter := map[string]*tally{}
	for _, reg := range regs {
		if !p.submittedIn(reg) {
			continue
		}
		t, ok := byCenter[reg.CenterID]
		if !ok {
			t = &tally{}
			byCenter[reg.CenterID] = t
		}
		t.total++
		if reg.Status == model.RegistrationApproved {
			t.approved++
		}
	}
	rows := make([][]string, 0, len(centers))
	for _, c := range centers {
		t := byCenter[c.ID]
		if t == nil {
			t = &tally{}
		}
		rate := 0.0
		if t.total > 0 {
			rate = 100 * float64(t.approved) / float64(t.total)
		}
		rows = append(rows, []string{
			c.Name, c.Province, c.Status, strconv.Itoa(c.Capacity),
			strconv.Itoa(t.total), strconv.Itoa(t.approved), strconv.FormatFloat(rate, 'f', 1, 64),
		})
	}
	return []string{"center", "province", "status", "capacity", "registrations", "approved", "approval_rate"}, rows, nil
}

func (s *Service) graduatesByArea(ctx context.Context, _ ReportParams) ([]string, [][]string, error) {
	graduates, err := s.repos.Graduates.All(ctx)
	if err != nil {
		return nil, nil, err
	}
	type tally struct {
		graduates, verified int
		gradeSum           float64
		grades             int
	}
	areas := map[string]*tally{}
	for _, g := range graduates {
		seen := map[string]bool{}
		for _, c := range g.Competencies {
			t, ok := areas[c.Area]
			if !ok {
				t = &tally{}
				areas[c.Area] = t
			}
			if c.Grade > 0 {
				t.gradeSum += c.Grade
				t.grades++
			}
			if seen[c.Area] {
				continue
			}
			seen[c.Area] = true
			t.graduates++
			if g.Verified {
				t.verified++
			}
		}
	}
	keys := make([]string, 0, len(areas))
	for k := range areas {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		t := areas[k]
		avg := 0.0
		if t.grades > 0 {
			avg = t.gradeSum / float64(t.grades)
		}
		rows = append(rows, []string{k, strconv.Itoa(t.graduates), strconv.Itoa(t.verified), strconv.FormatFloat(avg, 'f', 1, 64)})
	}
	return []string{"area", "graduates", "verified", "average_grade"}, rows, nil
}
