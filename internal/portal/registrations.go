package portal

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"maptss.ao/internal/model"
	"maptss.ao/internal/store"
)

// RegistrationRequest is what a citizen submits to enrol in a course.
// Documents maps a required document kind to its upload reference.
type RegistrationRequest struct {
	CitizenID    string            `json:"citizenId" validate:"required"`
	CitizenName  string            `json:"citizenName" validate:"required"`
	CitizenBI    string            `json:"citizenBI" validate:"omitempty,angolan_bi"`
	CitizenPhone string            `json:"citizenPhone" validate:"omitempty,angolan_phone"`
	CourseID     string            `json:"courseId" validate:"required"`
	CourseName   string            `json:"courseName"`
	CenterID     string            `json:"centerId" validate:"required"`
	CenterName   string            `json:"centerName"`
	Motivation   string            `json:"motivation" validate:"max=2000"`
	Documents    map[string]string `json:"documents"`
}

// AnalyzeDocuments summarises which required documents were submitted.
// Unknown document kinds are rejected.
func AnalyzeDocuments(docs map[string]string) (model.DocumentsStatus, error) {
	var unknown []string
	for kind := range docs {
		if !slices.Contains(model.RequiredDocuments, kind) {
			unknown = append(unknown, kind)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return model.DocumentsStatus{}, fmt.Errorf("%w: %s", ErrInvalidDocuments, strings.Join(unknown, ", "))
	}
	status := model.DocumentsStatus{
		Total:   len(model.RequiredDocuments),
		Missing: []string{},
	}
	for _, kind := range model.RequiredDocuments {
		if _, ok := docs[kind]; ok {
			status.Submitted++
		} else {
			status.Missing = append(status.Missing, kind)
		}
	}
	status.Complete = len(status.Missing) == 0
	return status, nil
}

// SubmitRegistration stores a new pending registration and notifies the
// citizen. Course and center names are filled in from the catalogue when the
// request leaves them empty.
func (s *Service) SubmitRegistration(ctx context.Context, req RegistrationRequest) (reg model.Registration, err error) {
	defer func() { observe("submit_registration", err) }()

	if err := check(ErrInvalidRegistration, req); err != nil {
		return model.Registration{}, err
	}
	docStatus, err := AnalyzeDocuments(req.Documents)
	if err != nil {
		return model.Registration{}, err
	}
	if req.CourseName == "" {
		if course, ok, err := s.repos.Courses.Get(ctx, req.CourseID); err != nil {
			return model.Registration{}, err
		} else if ok {
			req.CourseName = course.Name
		}
	}
	if req.CenterName == "" {
		if center, ok, err := s.repos.Centers.Get(ctx, req.CenterID); err != nil {
			return model.Registration{}, err
		} else if ok {
			req.CenterName = center.Name
		}
	}

	reg = model.Registration{
		Meta:            model.Meta{ID: s.newID("reg")},
		CitizenID:       req.CitizenID,
		CitizenName:     strings.TrimSpace(req.CitizenName),
		CitizenBI:       strings.TrimSpace(req.CitizenBI),
		CitizenPhone:    strings.TrimSpace(req.CitizenPhone),
		CourseID:        req.CourseID,
		CourseName:      req.CourseName,
		CenterID:        req.CenterID,
		CenterName:      req.CenterName,
		Motivation:      strings.TrimSpace(req.Motivation),
		Documents:       req.Documents,
		Status:          model.RegistrationPending,
		SubmittedAt:     s.stamp(),
		DocumentsStatus: docStatus,
	}
	if reg, err = s.repos.Registrations.Upsert(ctx, reg); err != nil {
		return model.Registration{}, err
	}
	if _, err := s.SendNotification(ctx, reg.CitizenID, "registration_submitted", "Sua inscrição foi submetida com sucesso"); err != nil {
		return reg, err
	}
	s.logger.Info("registration submitted", "registration_id", reg.ID, "citizen_id", reg.CitizenID, "complete", docStatus.Complete)
	return reg, nil
}

// ApproveRegistration moves a pending registration to approved, records the
// activity and notifies the citizen.
func (s *Service) ApproveRegistration(ctx context.Context, id, actorID string) (reg model.Registration, err error) {
	defer func() { observe("approve_registration", err) }()

	reg, err = s.transition(ctx, id, model.RegistrationApproved, actorID, "")
	if err != nil {
		return model.Registration{}, err
	}
	if err := s.recorder.Record(ctx, model.ActivityRegistrationApproved, actorID, reg.ID,
		"Inscrição aprovada para "+reg.CitizenName); err != nil {
		return reg, err
	}
	_, err = s.SendNotification(ctx, reg.CitizenID, "registration_approved",
		fmt.Sprintf("Sua inscrição para %s foi aprovada!", reg.CourseName))
	return reg, err
}

// RejectRegistration moves a pending registration to rejected with reason.
func (s *Service) RejectRegistration(ctx context.Context, id, actorID, reason string) (reg model.Registration, err error) {
	defer func() { observe("reject_registration", err) }()

	reason = strings.TrimSpace(reason)
	reg, err = s.transition(ctx, id, model.RegistrationRejected, actorID, reason)
	if err != nil {
		return model.Registration{}, err
	}
	if err := s.recorder.Record(ctx, model.ActivityRegistrationRejected, actorID, reg.ID,
		"Inscrição rejeitada: "+reason); err != nil {
		return reg, err
	}
	_, err = s.SendNotification(ctx, reg.CitizenID, "registration_rejected",
		"Sua inscrição foi rejeitada. Motivo: "+reason)
	return reg, err
}

func (s *Service) transition(ctx context.Context, id string, to model.RegistrationStatus, actorID, reason string) (model.Registration, error) {
	reg, err := s.repos.Registrations.Transition(ctx, id, to, actorID, reason, s.stamp())
	if errors.Is(err, store.ErrRecordNotFound) {
		return model.Registration{}, fmt.Errorf("%w: %s", ErrRegistrationNotFound, id)
	}
	return reg, err
}

// RegistrationFilter narrows RegistrationsForManagement. Empty fields impose
// no filter. Search matches citizen name, BI or phone, case-insensitively.
type RegistrationFilter struct {
	Status   model.RegistrationStatus
	CourseID string
	CenterID string
	Search   string
}

// ManagedRegistration is a registration with its linked records resolved.
// A link whose record no longer exists is left nil.
type ManagedRegistration struct {
	model.Registration
	Citizen *model.Citizen `json:"citizen"`
	Course  *model.Course  `json:"course"`
	Center  *model.Center  `json:"center"`
}

// RegistrationsForManagement filters registrations and resolves their
// citizen, course and center. Lookups run concurrently; output keeps the
// registration order.
func (s *Service) RegistrationsForManagement(ctx context.Context, f RegistrationFilter) (out []ManagedRegistration, err error) {
	defer func() { observe("registrations_for_management", err) }()

	var regs []model.Registration
	if f.Status != "" {
		regs, err = s.repos.Registrations.ByStatus(ctx, f.Status)
	} else {
		regs, err = s.repos.Registrations.All(ctx)
	}
	if err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))
	regs = slices.DeleteFunc(regs, func(r model.Registration) bool {
		if f.CourseID != "" && r.CourseID != f.CourseID {
			return true
		}
		if f.CenterID != "" && r.CenterID != f.CenterID {
			return true
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.CitizenName), search) &&
			!strings.Contains(strings.ToLower(r.CitizenBI), search) &&
			!strings.Contains(r.CitizenPhone, search) {
			return true
		}
		return false
	})

	out = make([]ManagedRegistration, len(regs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.enrichLimit)
	for i, reg := range regs {
		g.Go(func() error {
			m := ManagedRegistration{Registration: reg}
			if c, ok, err := s.repos.Citizens.Get(gctx, reg.CitizenID); err != nil {
				return err
			} else if ok {
				m.Citizen = &c
			}
			if c, ok, err := s.repos.Courses.Get(gctx, reg.CourseID); err != nil {
				return err
			} else if ok {
				m.Course = &c
			}
			if c, ok, err := s.repos.Centers.Get(gctx, reg.CenterID); err != nil {
				return err
			} else if ok {
				m.Center = &c
			}
			out[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
