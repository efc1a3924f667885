package repo

import (
	"context"

	"maptss.ao/internal/kv"
	"maptss.ao/internal/model"
	"maptss.ao/internal/store"
)

// Collection names as persisted (key = prefix + name).
const (
	CitizensCollection      = "citizens"
	RegistrationsCollection = "registrations"
	CentersCollection       = "centers"
	CoursesCollection       = "courses"
	GraduatesCollection     = "graduates"
	CertificatesCollection  = "certificates"
	EmployersCollection     = "empregadores"
	InternshipsCollection   = "internships"
	JobListingsCollection   = "job_listings"
	NotificationsCollection = "notifications"
	ActivitiesCollection    = "activities"
	VerificationsCollection = "verifications"
)

// Secondary index names.
const (
	IndexCitizensBI      = "citizens_bi"
	IndexCitizensEmail   = "citizens_email"
	IndexRegCitizen      = "reg_citizen"
	IndexRegStatus       = "reg_status"
	IndexCentersProvince = "centers_province"
	IndexGradCompetency  = "grad_competency"
)

// DefaultActivityCap bounds the activities collection.
const DefaultActivityCap = 1000

// Schema returns the portal's collections and indexes. activityCap <= 0
// selects DefaultActivityCap.
func Schema(activityCap int) store.Schema {
	if activityCap <= 0 {
		activityCap = DefaultActivityCap
	}
	return store.Schema{
		Collections: []store.Spec{
			{Name: CitizensCollection},
			{Name: RegistrationsCollection},
			{Name: CentersCollection},
			{Name: CoursesCollection},
			{Name: GraduatesCollection},
			{Name: CertificatesCollection},
			{Name: EmployersCollection},
			{Name: InternshipsCollection},
			{Name: JobListingsCollection},
			{Name: NotificationsCollection},
			{Name: ActivitiesCollection, Cap: activityCap},
			{Name: VerificationsCollection},
		},
		Indexes: []store.IndexSpec{
			store.IndexOn(IndexCitizensBI, CitizensCollection, func(c model.Citizen) []string { return []string{c.BI} }).AsUnique(),
			store.IndexOn(IndexCitizensEmail, CitizensCollection, func(c model.Citizen) []string { return []string{c.Email} }),
			store.IndexOn(IndexRegCitizen, RegistrationsCollection, func(r model.Registration) []string { return []string{r.CitizenID} }),
			store.IndexOn(IndexRegStatus, RegistrationsCollection, func(r model.Registration) []string { return []string{string(r.Status)} }),
			store.IndexOn(IndexCentersProvince, CentersCollection, func(c model.Center) []string { return []string{c.Province} }),
			store.IndexOn(IndexGradCompetency, GraduatesCollection, func(g model.Graduate) []string {
				areas := make([]string, 0, len(g.Competencies))
				for _, c := range g.Competencies {
					areas = append(areas, c.Area)
				}
				return areas
			}),
		},
	}
}

// Repos groups one repository per entity over a shared store.
type Repos struct {
	DB            *store.DB
	Citizens      *Citizens
	Registrations *Registrations
	Centers       *Centers
	Courses       *Courses
	Graduates     *Graduates
	Certificates  *Certificates
	Employers     *Employers
	Internships   *Internships
	JobListings   *JobListings
	Notifications *Notifications
	Activities    *Activities
	Verifications *Verifications
}

// Open opens a store with Schema(activityCap) over substrate.
func Open(ctx context.Context, substrate kv.Store, activityCap int, opts ...store.Option) (*Repos, error) {
	db, err := store.Open(ctx, substrate, Schema(activityCap), opts...)
	if err != nil {
		return nil, err
	}
	return New(db), nil
}

// New wires repositories over db.
func New(db *store.DB) *Repos {
	return &Repos{
		DB:            db,
		Citizens:      &Citizens{store.NewCollection[model.Citizen](db, CitizensCollection)},
		Registrations: &Registrations{store.NewCollection[model.Registration](db, RegistrationsCollection)},
		Centers:       &Centers{store.NewCollection[model.Center](db, CentersCollection)},
		Courses:       &Courses{store.NewCollection[model.Course](db, CoursesCollection)},
		Graduates:     &Graduates{store.NewCollection[model.Graduate](db, GraduatesCollection)},
		Certificates:  &Certificates{store.NewCollection[model.Certificate](db, CertificatesCollection)},
		Employers:     &Employers{store.NewCollection[model.Employer](db, EmployersCollection)},
		Internships:   &Internships{store.NewCollection[model.Internship](db, InternshipsCollection)},
		JobListings:   &JobListings{store.NewCollection[model.JobListing](db, JobListingsCollection)},
		Notifications: &Notifications{store.NewCollection[model.Notification](db, NotificationsCollection)},
		Activities:    &Activities{store.NewCollection[model.Activity](db, ActivitiesCollection)},
		Verifications: &Verifications{store.NewCollection[model.Verification](db, VerificationsCollection)},
	}
}
