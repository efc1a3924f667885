package portal

import (
	"context"
	"time"

	"maptss.ao/internal/model"
)

// Seed loads the demonstration catalogue (two Luanda centers with one course
// each, a citizen with a pending registration, a certified graduate with a
// certificate and an employer profile) when no center exists yet. It reports
// whether anything was written.
func (s *Service) Seed(ctx context.Context) (seeded bool, err error) {
	defer func() { observe("seed", err) }()

	centers, err := s.repos.Centers.All(ctx)
	if err != nil {
		return false, err
	}
	if len(centers) > 0 {
		return false, nil
	}

	for _, c := range sampleCenters() {
		if _, err := s.repos.Centers.Upsert(ctx, c); err != nil {
			return false, err
		}
	}
	for _, c := range sampleCourses() {
		if _, err := s.repos.Courses.Upsert(ctx, c); err != nil {
			return false, err
		}
	}
	if _, err := s.repos.Citizens.Save(ctx, sampleCitizen()); err != nil {
		return false, err
	}
	if _, err := s.repos.Registrations.Upsert(ctx, sampleRegistration()); err != nil {
		return false, err
	}
	if _, err := s.repos.Graduates.Upsert(ctx, sampleGraduate()); err != nil {
		return false, err
	}
	if _, err := s.repos.Certificates.Upsert(ctx, sampleCertificate()); err != nil {
		return false, err
	}
	if _, err := s.repos.Employers.Upsert(ctx, sampleEmployer()); err != nil {
		return false, err
	}
	s.logger.Info("sample data loaded")
	return true, nil
}

func sampleCenters() []model.Center {
	return []model.Center{
		{
			Meta:           model.Meta{ID: "center_inefop_luanda"},
			Name:           "Centro INEFOP Luanda",
			Address:        "Rua Rainha Ginga, Maianga, Luanda",
			Province:       "Luanda",
			Municipality:   "Luanda",
			Location:       &model.GeoPoint{Latitude: -8.8389, Longitude: 13.2894},
			Phone:          "+244 222 000 001",
			Email:          "luanda@inefop.ao",
			Status:         model.CenterActive,
			Capacity:       500,
			CoursesOffered: []string{"informatica", "soldadura", "electricidade"},
			Facilities:     []string{"Computer Lab", "Workshop", "Library"},
		},
		{
			Meta:           model.Meta{ID: "center_tecnico_maianga"},
			Name:           "Centro Técnico Maianga",
			Address:        "Avenida Deolinda Rodrigues, Maianga",
			Province:       "Luanda",
			Municipality:   "Luanda",
			Location:       &model.GeoPoint{Latitude: -8.8450, Longitude: 13.2920},
			Phone:          "+244 222 000 002",
			Email:          "maianga@maptss.ao",
			Status:         model.CenterActive,
			Capacity:       300,
			CoursesOffered: []string{"soldadura", "mecanica", "construcao"},
			Facilities:     []string{"Workshop", "Tools Library"},
		},
	}
}

func sampleCourses() []model.Course {
	return []model.Course{
		{
			Meta:         model.Meta{ID: "course_informatica_basica"},
			Name:         "Informática Básica",
			Area:         "informatica",
			Duration:     3,
			DurationType: "months",
			Modality:     "presencial",
			Description:  "Aprenda os fundamentos da informática, incluindo Windows, Word, Excel e Internet.",
			Requirements: []string{"12ª Classe", "Conhecimentos básicos de matemática"},
			CenterID:     "center_inefop_luanda",
			MaxStudents:  25,
			Schedule:     "Segunda a Sexta, 14h às 17h",
			Certificate:  true,
		},
		{
			Meta:         model.Meta{ID: "course_soldadura_basica"},
			Name:         "Soldadura Básica",
			Area:         "soldadura",
			Duration:     4,
			DurationType: "months",
			Modality:     "presencial",
			Description:  "Curso prático de soldadura com certificação reconhecida nacionalmente.",
			Requirements: []string{"9ª Classe", "Exame médico"},
			CenterID:     "center_tecnico_maianga",
			MaxStudents:  15,
			Schedule:     "Segunda a Sexta, 8h às 12h",
			Certificate:  true,
		},
	}
}

func sampleCitizen() model.Citizen {
	return model.Citizen{
		Meta:          model.Meta{ID: "citizen_001"},
		Name:          "João Silva Santos",
		BI:            "004123456LA041",
		BirthDate:     "1999-03-15",
		Gender:        "M",
		Phone:         "+244 923 456 789",
		Email:         "joao.silva@email.com",
		Address:       "Rua da Independência, nº 123, Maianga, Luanda",
		Province:      "Luanda",
		Municipality:  "Luanda",
		Education:     "12ª Classe",
		MaritalStatus: "Solteiro",
		Location:      &model.GeoPoint{Latitude: -8.8400, Longitude: 13.2900},
	}
}

func sampleRegistration() model.Registration {
	return model.Registration{
		Meta:         model.Meta{ID: "reg_001"},
		CitizenID:    "citizen_001",
		CitizenName:  "João Silva Santos",
		CitizenBI:    "004123456LA041",
		CitizenPhone: "+244 923 456 789",
		CourseID:     "course_informatica_basica",
		CourseName:   "Informática Básica",
		CenterID:     "center_inefop_luanda",
		CenterName:   "Centro INEFOP Luanda",
		Motivation:   "Desejo aprender informática para melhorar minhas oportunidades de emprego e poder ajudar minha família.",
		Documents:    map[string]string{"bi": "doc_bi_001", "certificate": "doc_certificate_001"},
		Status:       model.RegistrationPending,
		SubmittedAt:  time.Date(2024, 1, 25, 14, 30, 0, 0, time.UTC),
		DocumentsStatus: model.DocumentsStatus{
			Total:     4,
			Submitted: 2,
			Missing:   []string{"photo", "residence"},
		},
	}
}

func sampleGraduate() model.Graduate {
	return model.Graduate{
		Meta:      model.Meta{ID: "graduate_001"},
		CitizenID: "citizen_002",
		Name:      "Maria Silva Andrade",
		Age:       22,
		Location:  "Luanda",
		Phone:     "+244 923 456 790",
		Email:     "maria.andrade@email.com",
		Competencies: []model.Competency{
			{Area: "informatica", Course: "Informática Avançada", Level: "advanced", Grade: 18, CertificateID: "cert_001"},
		},
		ExperienceLevel: "intermediario",
		Availability:    "immediate",
		WorkType:        "full-time",
		Rating:          4.9,
		GraduatedAt:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Verified:        true,
	}
}

func sampleCertificate() model.Certificate {
	return model.Certificate{
		Meta:       model.Meta{ID: "cert_001"},
		Code:       "MAPTSS-2024-INF-001",
		StudentID:  "graduate_001",
		CourseName: "Informática Avançada",
		IssuedAt:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}
}

func sampleEmployer() model.Employer {
	return model.Employer{
		Meta:    model.Meta{ID: "user_empregador_001"},
		Name:    "RH Empresa XYZ",
		Company: "Empresa XYZ, Lda",
		Sector:  "Tecnologia",
		Email:   "rh@empresa.ao",
		Status:  "active",
	}
}
