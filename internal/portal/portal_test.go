package portal

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maptss.ao/internal/errs"
	"maptss.ao/internal/kv"
	"maptss.ao/internal/model"
	"maptss.ao/internal/repo"
	"maptss.ao/internal/testutil"
)

type fixture struct {
	svc   *Service
	repos *repo.Repos
	clock *testutil.StubClock
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	ctx := context.Background()
	clock := testutil.FixedClock()
	gen := testutil.NewStubIDGenerator()
	repos, err := repo.Open(ctx, kv.NewMemory(), repo.DefaultActivityCap)
	require.NoError(t, err)
	base := []Option{WithClock(clock.Now), WithIDGenerator(gen.New)}
	svc, err := New(repos, append(base, opts...)...)
	require.NoError(t, err)
	return fixture{svc: svc, repos: repos, clock: clock}
}

func seeded(t *testing.T) fixture {
	t.Helper()
	f := newFixture(t)
	ok, err := f.svc.Seed(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	return f
}

func validRequest() RegistrationRequest {
	return RegistrationRequest{
		CitizenID:    "citizen_001",
		CitizenName:  "João Silva Santos",
		CitizenBI:    "004123456LA041",
		CitizenPhone: "+244 923 456 789",
		CourseID:     "course_soldadura_basica",
		CenterID:     "center_tecnico_maianga",
		Motivation:   "Quero trabalhar na construção.",
		Documents:    map[string]string{"bi": "doc1", "photo": "doc2", "certificate": "doc3"},
	}
}

func count[T any](t *testing.T, items []T, err error) int {
	t.Helper()
	require.NoError(t, err)
	return len(items)
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	f := seeded(t)
	ok, err := f.svc.Seed(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	centers, err := f.repos.Centers.All(context.Background())
	require.NoError(t, err)
	assert.Len(t, centers, 2)
}

func TestSubmitRegistration(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()
	sub := f.svc.Hub().Subscribe(t.Context(), "citizen_001")

	reg, err := f.svc.SubmitRegistration(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "reg_id-1", reg.ID)
	assert.Equal(t, model.RegistrationPending, reg.Status)
	assert.Equal(t, f.clock.Now(), reg.SubmittedAt)
	assert.Equal(t, "Soldadura Básica", reg.CourseName)
	assert.Equal(t, "Centro Técnico Maianga", reg.CenterName)
	assert.Equal(t, model.DocumentsStatus{Total: 4, Submitted: 3, Missing: []string{"residence"}, Complete: false}, reg.DocumentsStatus)

	notes, err := f.svc.Notifications(ctx, "citizen_001")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "registration_submitted", notes[0].Type)
	assert.False(t, notes[0].Read)

	select {
	case n := <-sub:
		assert.Equal(t, notes[0].ID, n.ID)
	default:
		t.Fatal("subscriber did not receive the notification")
	}
}

func TestSubmitRegistrationRejectsBadInput(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*RegistrationRequest)
		want   error
	}{
		{"malformed BI", func(r *RegistrationRequest) { r.CitizenBI = "12345" }, ErrInvalidRegistration},
		{"malformed phone", func(r *RegistrationRequest) { r.CitizenPhone = "+351 912 345 678" }, ErrInvalidRegistration},
		{"missing course", func(r *RegistrationRequest) { r.CourseID = "" }, ErrInvalidRegistration},
		{"unknown document", func(r *RegistrationRequest) { r.Documents["passport"] = "x" }, ErrInvalidDocuments},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := f.svc.SubmitRegistration(ctx, req)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, errs.KindValidation, errs.KindOf(err))
		})
	}
	regs, err := f.repos.Registrations.All(ctx)
	require.NoError(t, err)
	assert.Len(t, regs, 1)
}

func TestFormatValidators(t *testing.T) {
	assert.True(t, ValidBI("004123456LA041"))
	assert.False(t, ValidBI("004123456la041"))
	assert.False(t, ValidBI("04123456LA041"))

	for _, ok := range []string{"+244 923 456 789", "923456789", "244-923-456-789"} {
		assert.True(t, ValidPhone(ok), ok)
	}
	for _, bad := range []string{"", "823456789", "+244 222 000 001", "92345678"} {
		assert.False(t, ValidPhone(bad), bad)
	}
}

func TestAnalyzeDocuments(t *testing.T) {
	st, err := AnalyzeDocuments(nil)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentsStatus{Total: 4, Submitted: 0, Missing: model.RequiredDocuments, Complete: false}, st)

	st, err = AnalyzeDocuments(map[string]string{"bi": "a", "certificate": "b", "photo": "c", "residence": "d"})
	require.NoError(t, err)
	assert.True(t, st.Complete)
	assert.Empty(t, st.Missing)
}

func TestApproveRegistrationLifecycle(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()
	f.clock.Advance(time.Hour)

	reg, err := f.svc.ApproveRegistration(ctx, "reg_001", "user_gestor_001")
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationApproved, reg.Status)
	assert.Equal(t, "user_gestor_001", reg.ApprovedBy)
	assert.Equal(t, f.clock.Now(), reg.ApprovedAt)

	notes, err := f.repos.Notifications.All(ctx)
	assert.Equal(t, 1, count(t, notes, err))
	assert.Equal(t, "registration_approved", notes[0].Type)
	assert.Equal(t, "citizen_001", notes[0].UserID)
	assert.Contains(t, notes[0].Message, "Informática Básica")

	acts, err := f.repos.Activities.All(ctx)
	assert.Equal(t, 1, count(t, acts, err))
	assert.Equal(t, model.ActivityRegistrationApproved, acts[0].Type)
	assert.Equal(t, "reg_001", acts[0].TargetID)

	_, err = f.svc.ApproveRegistration(ctx, "reg_001", "user_gestor_001")
	assert.ErrorIs(t, err, repo.ErrInvalidTransition)
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))
	_, err = f.svc.RejectRegistration(ctx, "reg_001", "user_gestor_001", "late")
	assert.ErrorIs(t, err, repo.ErrInvalidTransition)

	notes, err = f.repos.Notifications.All(ctx)
	assert.Equal(t, 1, count(t, notes, err))
	acts, err = f.repos.Activities.All(ctx)
	assert.Equal(t, 1, count(t, acts, err))
}

func TestRejectRegistrationLifecycle(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()

	reg, err := f.svc.RejectRegistration(ctx, "reg_001", "user_gestor_001", "Documentos incompletos")
	require.NoError(t, err)
	assert.Equal(t, model.RegistrationRejected, reg.Status)
	assert.Equal(t, "user_gestor_001", reg.RejectedBy)
	assert.Equal(t, "Documentos incompletos", reg.RejectionReason)
	assert.Equal(t, f.clock.Now(), reg.RejectedAt)

	notes, err := f.repos.Notifications.All(ctx)
	assert.Equal(t, 1, count(t, notes, err))
	assert.Equal(t, "Sua inscrição foi rejeitada. Motivo: Documentos incompletos", notes[0].Message)
	acts, err := f.repos.Activities.All(ctx)
	assert.Equal(t, 1, count(t, acts, err))
	assert.Equal(t, model.ActivityRegistrationRejected, acts[0].Type)
}

func TestTransitionUnknownRegistration(t *testing.T) {
	f := seeded(t)
	_, err := f.svc.ApproveRegistration(context.Background(), "reg_missing", "u")
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	_, err = f.svc.RejectRegistration(context.Background(), "reg_missing", "u", "x")
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestRegistrationsForManagement(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()
	second := validRequest()
	second.CitizenID = "citizen_002"
	second.CitizenName = "Ana Maria Costa"
	second.CitizenBI = "005987654LA042"
	second.CitizenPhone = "912345678"
	_, err := f.svc.SubmitRegistration(ctx, second)
	require.NoError(t, err)
	_, err = f.svc.SubmitRegistration(ctx, validRequest())
	require.NoError(t, err)

	all, err := f.svc.RegistrationsForManagement(ctx, RegistrationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"reg_001", "reg_id-1", "reg_id-3"}, []string{all[0].ID, all[1].ID, all[2].ID})
	require.NotNil(t, all[0].Citizen)
	assert.Equal(t, "004123456LA041", all[0].Citizen.BI)
	require.NotNil(t, all[0].Course)
	assert.Equal(t, "informatica", all[0].Course.Area)
	require.NotNil(t, all[0].Center)
	assert.Nil(t, all[1].Citizen, "citizen_002 has no citizen record")

	byCenter, err := f.svc.RegistrationsForManagement(ctx, RegistrationFilter{CenterID: "center_tecnico_maianga"})
	require.NoError(t, err)
	assert.Len(t, byCenter, 2)

	search, err := f.svc.RegistrationsForManagement(ctx, RegistrationFilter{Search: "ANA MARIA"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, "citizen_002", search[0].CitizenID)

	search, err = f.svc.RegistrationsForManagement(ctx, RegistrationFilter{Search: "la041"})
	require.NoError(t, err)
	assert.Len(t, search, 2)

	_, err = f.svc.ApproveRegistration(ctx, "reg_001", "g")
	require.NoError(t, err)
	pending, err := f.svc.RegistrationsForManagement(ctx, RegistrationFilter{Status: model.RegistrationPending, CourseID: "course_soldadura_basica"})
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func addGraduates(t *testing.T, f fixture) {
	t.Helper()
	ctx := context.Background()
	grads := []model.Graduate{
		{Meta: model.Meta{ID: "g_a"}, Name: "Carlos Neto", BirthDate: "2000-06-01", Location: "Luanda", ExperienceLevel: "junior", Verified: true,
			Competencies: []model.Competency{{Area: "informatica", Grade: 15}}},
		{Meta: model.Meta{ID: "g_b"}, Name: "Beatriz Lopes", BirthDate: "1990-02-10", Location: "Benguela", ExperienceLevel: "senior", Verified: true,
			Competencies: []model.Competency{{Area: "informatica", Grade: 17}, {Area: "soldadura", Grade: 12}}},
		{Meta: model.Meta{ID: "g_c"}, Name: "Paulo Neto", BirthDate: "2001-01-20", Location: "Luanda", ExperienceLevel: "junior", Verified: true,
			Competencies: []model.Competency{{Area: "soldadura", Grade: 14}}},
		{Meta: model.Meta{ID: "g_d"}, Name: "Hidden Neto", Location: "Luanda", Verified: false,
			Competencies: []model.Competency{{Area: "informatica", Grade: 19}}},
	}
	for _, g := range grads {
		_, err := f.repos.Graduates.Upsert(ctx, g)
		require.NoError(t, err)
	}
}

func graduateIDs(gs []model.Graduate) []string {
	out := make([]string, 0, len(gs))
	for _, g := range gs {
		out = append(out, g.ID)
	}
	return out
}

func TestSearchGraduatesCombinesWithAnd(t *testing.T) {
	f := seeded(t)
	addGraduates(t, f)
	ctx := context.Background()

	byArea, err := f.svc.SearchGraduates(ctx, GraduateCriteria{Competency: "informatica"})
	require.NoError(t, err)
	byLocation, err := f.svc.SearchGraduates(ctx, GraduateCriteria{Location: "Luanda"})
	require.NoError(t, err)
	both, err := f.svc.SearchGraduates(ctx, GraduateCriteria{Competency: "informatica", Location: "Luanda"})
	require.NoError(t, err)

	var intersection []string
	inLocation := map[string]bool{}
	for _, g := range byLocation {
		inLocation[g.ID] = true
	}
	for _, g := range byArea {
		if inLocation[g.ID] {
			intersection = append(intersection, g.ID)
		}
	}
	assert.Equal(t, intersection, graduateIDs(both))
	assert.Equal(t, []string{"graduate_001", "g_a"}, graduateIDs(both))
	for _, g := range both {
		assert.True(t, g.HasCompetency("informatica"))
		assert.Equal(t, "Luanda", g.Location)
	}

	all, err := f.svc.SearchGraduates(ctx, GraduateCriteria{})
	require.NoError(t, err)
	assert.NotContains(t, graduateIDs(all), "g_d")
}

func TestSearchGraduatesByAgeAndName(t *testing.T) {
	f := seeded(t)
	addGraduates(t, f)
	ctx := context.Background()

	// clock is 2024-01-15: g_a is 23, g_b 33, g_c 22, graduate_001 has a stored age of 22
	young, err := f.svc.SearchGraduates(ctx, GraduateCriteria{Age: "22-23"})
	require.NoError(t, err)
	assert.Equal(t, []string{"graduate_001", "g_a", "g_c"}, graduateIDs(young))

	named, err := f.svc.SearchGraduates(ctx, GraduateCriteria{Name: "neto", Experience: "junior"})
	require.NoError(t, err)
	assert.Equal(t, []string{"g_a", "g_c"}, graduateIDs(named))

	for _, bad := range []string{"22", "a-b", "30-20", "-5"} {
		_, err := f.svc.SearchGraduates(ctx, GraduateCriteria{Age: bad})
		assert.ErrorIs(t, err, ErrInvalidAgeRange, bad)
	}
}

func TestVerifyCertificate(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()
	_, err := f.repos.Certificates.Upsert(ctx, model.Certificate{Meta: model.Meta{ID: "cert_bad"}, Code: "FAKE-1", StudentID: "graduate_001"})
	require.NoError(t, err)

	res, err := f.svc.VerifyCertificate(ctx, "NOPE", "user_empregador_001")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "Certificado não encontrado", res.Error)

	res, err = f.svc.VerifyCertificate(ctx, "FAKE-1", "user_empregador_001")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Nil(t, res.Certificate)

	acts, err := f.repos.Activities.All(ctx)
	assert.Zero(t, count(t, acts, err))

	res, err = f.svc.VerifyCertificate(ctx, "MAPTSS-2024-INF-001", "user_empregador_001")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	require.NotNil(t, res.Certificate)
	assert.Equal(t, "cert_001", res.Certificate.ID)
	assert.Equal(t, f.clock.Now(), res.VerifiedAt)

	acts, err = f.repos.Activities.All(ctx)
	assert.Equal(t, 1, count(t, acts, err))
	assert.Equal(t, model.ActivityCertificateVerified, acts[0].Type)
	n, err := f.repos.Verifications.CountByEmployer(ctx, "user_empregador_001")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// anonymous checks are logged but not counted
	_, err = f.svc.VerifyCertificate(ctx, "MAPTSS-2024-INF-001", "")
	require.NoError(t, err)
	vs, err := f.repos.Verifications.All(ctx)
	assert.Equal(t, 1, count(t, vs, err))
}

func TestDistance(t *testing.T) {
	assert.Zero(t, Distance(-8.8389, 13.2894, -8.8389, 13.2894))
	// one degree of latitude
	assert.InDelta(t, 111.19, Distance(0, 0, 1, 0), 0.01)
	assert.InDelta(t, Distance(-8.8, 13.2, -12.5, 13.5), Distance(-12.5, 13.5, -8.8, 13.2), 1e-9)
}

func TestNearbyCenters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ref := model.GeoPoint{Latitude: -8.8389, Longitude: 13.2894}
	centers := []model.Center{
		{Meta: model.Meta{ID: "far"}, Name: "Far", Location: &model.GeoPoint{Latitude: ref.Latitude - 0.3, Longitude: ref.Longitude}},
		{Meta: model.Meta{ID: "out"}, Name: "Out", Location: &model.GeoPoint{Latitude: ref.Latitude - 1, Longitude: ref.Longitude}},
		{Meta: model.Meta{ID: "near"}, Name: "Near", Location: &model.GeoPoint{Latitude: ref.Latitude - 0.01, Longitude: ref.Longitude}},
		{Meta: model.Meta{ID: "nowhere"}, Name: "No coordinates"},
		{Meta: model.Meta{ID: "mid"}, Name: "Mid", Location: &model.GeoPoint{Latitude: ref.Latitude - 0.1, Longitude: ref.Longitude}},
		{Meta: model.Meta{ID: "mid_twin"}, Name: "Mid twin", Location: &model.GeoPoint{Latitude: ref.Latitude - 0.1, Longitude: ref.Longitude}},
	}
	for _, c := range centers {
		_, err := f.repos.Centers.Upsert(ctx, c)
		require.NoError(t, err)
	}

	got, err := f.svc.NearbyCenters(ctx, ref, 0)
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for i, c := range got {
		ids = append(ids, c.ID)
		if i > 0 {
			assert.LessOrEqual(t, got[i-1].DistanceKm, c.DistanceKm)
		}
		assert.LessOrEqual(t, c.DistanceKm, DefaultNearbyRadiusKm)
	}
	assert.Equal(t, []string{"near", "mid", "mid_twin", "far"}, ids)

	got, err = f.svc.NearbyCenters(ctx, ref, 200)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, "out", got[4].ID)
	assert.False(t, math.IsNaN(got[4].DistanceKm))
}

func TestCentersAndCourses(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()
	_, err := f.repos.Centers.SetStatus(ctx, "center_tecnico_maianga", model.CenterInactive)
	require.NoError(t, err)

	active, err := f.svc.Centers(ctx, CenterFilter{Province: "Luanda", Status: model.CenterActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "center_inefop_luanda", active[0].ID)

	none, err := f.svc.Centers(ctx, CenterFilter{Province: "Huíla"})
	require.NoError(t, err)
	assert.Empty(t, none)

	courses, err := f.svc.Courses(ctx, CourseFilter{Area: "soldadura", Duration: 4})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "course_soldadura_basica", courses[0].ID)

	courses, err = f.svc.Courses(ctx, CourseFilter{CenterID: "center_inefop_luanda", Duration: 4})
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestDashboards(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()
	_, err := f.svc.SubmitRegistration(ctx, validRequest())
	require.NoError(t, err)
	_, err = f.svc.ApproveRegistration(ctx, "reg_001", "user_gestor_001")
	require.NoError(t, err)

	cd, err := f.svc.CitizenDashboard(ctx, "citizen_001")
	require.NoError(t, err)
	assert.Equal(t, CitizenStats{TotalRegistrations: 2, ApprovedRegistrations: 1, PendingRegistrations: 1, NearbyCentersCount: 2}, cd.Stats)
	assert.Equal(t, "center_inefop_luanda", cd.NearbyCenters[0].ID)

	_, err = f.svc.CitizenDashboard(ctx, "citizen_missing")
	assert.ErrorIs(t, err, ErrCitizenNotFound)

	md, err := f.svc.ManagerDashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, ManagerStats{TotalRegistrations: 2, ApprovedRegistrations: 1, PendingRegistrations: 1, ActiveCenters: 2, TotalCenters: 2}, md.Stats)
	assert.Equal(t, map[string]int{"2024-01": 2}, md.MonthlyStats)
	require.Len(t, md.RecentActivity, 1)

	_, err = f.svc.PostJobListing(ctx, JobListingRequest{EmployerID: "user_empregador_001", Title: "Técnico de suporte"})
	require.NoError(t, err)
	in, err := f.svc.CreateInternship(ctx, InternshipRequest{EmployerID: "user_empregador_001", GraduateID: "graduate_001", Title: "Estágio TI"})
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), in.StartDate)
	_, err = f.svc.VerifyCertificate(ctx, "MAPTSS-2024-INF-001", "user_empregador_001")
	require.NoError(t, err)

	ed, err := f.svc.EmployerDashboard(ctx, "user_empregador_001")
	require.NoError(t, err)
	require.NotNil(t, ed.Employer)
	assert.Equal(t, EmployerStats{AvailableGraduates: 1, ActiveInternships: 1, OpenJobListings: 1, CertificatesVerified: 1}, ed.Stats)
	require.Len(t, ed.RecentActivity, 1)
	assert.Equal(t, model.ActivityCertificateVerified, ed.RecentActivity[0].Type)

	empty, err := f.svc.EmployerDashboard(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, empty.Employer)
	assert.Zero(t, empty.Stats.OpenJobListings)
}

func TestEmployerRequests(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()

	_, err := f.svc.PostJobListing(ctx, JobListingRequest{EmployerID: "e1"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = f.svc.CreateInternship(ctx, InternshipRequest{EmployerID: "e1", Title: "x", GraduateID: "ghost"})
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	jl, err := f.svc.PostJobListing(ctx, JobListingRequest{EmployerID: "e1", Title: "Soldador"})
	require.NoError(t, err)
	assert.Equal(t, model.JobOpen, jl.Status)
	jl, err = f.svc.CloseJobListing(ctx, jl.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobClosed, jl.Status)

	in, err := f.svc.CreateInternship(ctx, InternshipRequest{EmployerID: "e1", Title: "Estágio"})
	require.NoError(t, err)
	in, err = f.svc.CloseInternship(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, model.InternshipClosed, in.Status)
}

func TestGenerateReport(t *testing.T) {
	f := seeded(t)
	addGraduates(t, f)
	ctx := context.Background()
	f.clock.Set(time.Date(2024, 2, 3, 9, 0, 0, 0, time.UTC))
	_, err := f.svc.SubmitRegistration(ctx, validRequest())
	require.NoError(t, err)
	_, err = f.svc.ApproveRegistration(ctx, "reg_001", "g")
	require.NoError(t, err)

	r, err := f.svc.GenerateReport(ctx, ReportRegistrationsMonthly, ReportParams{})
	require.NoError(t, err)
	assert.Equal(t, ReportRegistrationsMonthly, r.Type)
	assert.Equal(t, f.clock.Now(), r.GeneratedAt)
	assert.Equal(t, [][]string{
		{"2024-01", "1", "0", "1", "0"},
		{"2024-02", "1", "1", "0", "0"},
	}, r.Rows)

	r, err = f.svc.GenerateReport(ctx, ReportRegistrationsMonthly, ReportParams{From: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Len(t, r.Rows, 1)

	r, err = f.svc.GenerateReport(ctx, ReportCentersPerformance, ReportParams{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Centro INEFOP Luanda", "Luanda", "active", "500", "1", "1", "100.0"},
		{"Centro Técnico Maianga", "Luanda", "active", "300", "1", "0", "0.0"},
	}, r.Rows)

	r, err = f.svc.GenerateReport(ctx, ReportGraduatesByArea, ReportParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"area", "graduates", "verified", "average_grade"}, r.Columns)
	assert.Equal(t, [][]string{
		{"informatica", "4", "3", "17.2"},
		{"soldadura", "2", "2", "13.0"},
	}, r.Rows)

	_, err = f.svc.GenerateReport(ctx, "payroll", ReportParams{})
	assert.ErrorIs(t, err, ErrUnsupportedReportType)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SendNotification(ctx, "", "info", "x")
	assert.ErrorIs(t, err, ErrInvalidRequest)

	n1, err := f.svc.SendNotification(ctx, "u1", "info", "primeira")
	require.NoError(t, err)
	_, err = f.svc.SendNotification(ctx, "u1", "info", "segunda")
	require.NoError(t, err)
	_, err = f.svc.SendNotification(ctx, "u2", "info", "outra")
	require.NoError(t, err)

	unread, err := f.svc.UnreadNotifications(ctx, "u1")
	assert.Equal(t, 2, count(t, unread, err))

	f.clock.Advance(time.Minute)
	read, err := f.svc.MarkNotificationRead(ctx, n1.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)
	first := read.ReadAt

	f.clock.Advance(time.Minute)
	read, err = f.svc.MarkNotificationRead(ctx, n1.ID)
	require.NoError(t, err)
	assert.Equal(t, first, read.ReadAt)

	unread, err = f.svc.UnreadNotifications(ctx, "u1")
	assert.Equal(t, 1, count(t, unread, err))
	all, err := f.svc.Notifications(ctx, "u1")
	assert.Equal(t, 2, count(t, all, err))

	_, err = f.svc.MarkNotificationRead(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestRecentActivityAndMonthlyStats(t *testing.T) {
	f := seeded(t)
	ctx := context.Background()
	for range RecentActivityLimit + 5 {
		_, err := f.svc.VerifyCertificate(ctx, "MAPTSS-2024-INF-001", "")
		require.NoError(t, err)
		f.clock.Advance(time.Second)
	}
	recent, err := f.svc.RecentActivity(ctx)
	require.NoError(t, err)
	require.Len(t, recent, RecentActivityLimit)
	assert.True(t, recent[0].Timestamp.After(recent[1].Timestamp))

	stats, err := f.svc.MonthlyRegistrationStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2024-01": 1}, stats)
}

func TestOptionsValidate(t *testing.T) {
	repos, err := repo.Open(context.Background(), kv.NewMemory(), 10)
	require.NoError(t, err)
	_, err = New(repos, WithNearbyRadius(-1))
	assert.Error(t, err)
	_, err = New(repos, WithEnrichConcurrency(0))
	assert.Error(t, err)
	_, err = New(nil)
	assert.Error(t, err)
}
