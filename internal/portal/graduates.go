package portal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"maptss.ao/internal/model"
)

// GraduateCriteria narrows SearchGraduates. Every non-empty field is a
// filter and filters combine with AND. Age is an inclusive "min-max" range.
type GraduateCriteria struct {
	Competency string
	Location   string
	Experience string
	Age        string
	Name       string
}

// ParseAgeRange parses an inclusive "min-max" range such as "18-25".
func ParseAgeRange(s string) (minAge, maxAge int, err error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidAgeRange, s)
	}
	minAge, err1 := strconv.Atoi(strings.TrimSpace(lo))
	maxAge, err2 := strconv.Atoi(strings.TrimSpace(hi))
	if err1 != nil || err2 != nil || minAge < 0 || minAge > maxAge {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidAgeRange, s)
	}
	return minAge, maxAge, nil
}

// SearchGraduates returns verified graduates matching every given criterion,
// in insertion order.
func (s *Service) SearchGraduates(ctx context.Context, c GraduateCriteria) (out []model.Graduate, err error) {
	defer func() { observe("search_graduates", err) }()

	var preds []func(model.Graduate) bool
	if c.Competency != "" {
		preds = append(preds, func(g model.Graduate) bool { return g.HasCompetency(c.Competency) })
	}
	if c.Location != "" {
		preds = append(preds, func(g model.Graduate) bool { return g.Location == c.Location })
	}
	if c.Experience != "" {
		preds = append(preds, func(g model.Graduate) bool { return g.ExperienceLevel == c.Experience })
	}
	if c.Age != "" {
		minAge, maxAge, err := ParseAgeRange(c.Age)
		if err != nil {
			return nil, err
		}
		now := s.now()
		preds = append(preds, func(g model.Graduate) bool {
			age := g.AgeAt(now)
			return age >= minAge && age <= maxAge
		})
	}
	if name := strings.ToLower(strings.TrimSpace(c.Name)); name != "" {
		preds = append(preds, func(g model.Graduate) bool { return strings.Contains(strings.ToLower(g.Name), name) })
	}

	return s.repos.Graduates.FindWhere(ctx, func(g model.Graduate) bool {
		if !g.Verified {
			return false
		}
		for _, p := range preds {
			if !p(g) {
				return false
			}
		}
		return true
	})
}

// CertificateVerification is the outcome of VerifyCertificate. Error carries
// the user-facing reason when Valid is false.
type CertificateVerification struct {
	Valid       bool               `json:"valid"`
	Error       string             `json:"error,omitempty"`
	Certificate *model.Certificate `json:"certificate,omitempty"`
	VerifiedAt  time.Time          `json:"verifiedAt,omitzero"`
}

// VerifyCertificate looks a certificate up by code and checks it is
// authentic. A valid check is logged as an activity and, when employerID is
// set, counted as a verification for that employer. Unknown or inauthentic
// certificates are reported through Valid, not as errors.
func (s *Service) VerifyCertificate(ctx context.Context, code, employerID string) (res CertificateVerification, err error) {
	defer func() { observe("verify_certificate", err) }()

	code = strings.TrimSpace(code)
	if code == "" {
		return CertificateVerification{Error: "Certificado não encontrado"}, nil
	}
	cert, ok, err := s.repos.Certificates.ByCode(ctx, code)
	if err != nil {
		return CertificateVerification{}, err
	}
	if !ok {
		return CertificateVerification{Error: "Certificado não encontrado"}, nil
	}
	if !cert.Authentic() {
		return CertificateVerification{Error: "Certificado inválido ou falsificado"}, nil
	}

	now := s.stamp()
	if err := s.recorder.Record(ctx, model.ActivityCertificateVerified, employerID, cert.ID,
		"Certificado verificado: "+cert.Code); err != nil {
		return CertificateVerification{}, err
	}
	if employerID != "" {
		_, err := s.repos.Verifications.Upsert(ctx, model.Verification{
			Meta:            model.Meta{ID: s.newID("ver")},
			EmployerID:      employerID,
			CertificateID:   cert.ID,
			CertificateCode: cert.Code,
			VerifiedAt:      now,
		})
		if err != nil {
			return CertificateVerification{}, err
		}
	}
	return CertificateVerification{Valid: true, Certificate: &cert, VerifiedAt: now}, nil
}
