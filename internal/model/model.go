// Package model defines the records persisted by the portal. Field names
// follow the persisted camelCase layout.
package model

import "time"

// Meta is embedded in every record.
type Meta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// GeoPoint is a WGS84 coordinate in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Citizen struct {
	Meta
	Name          string    `json:"name"`
	BI            string    `json:"bi"`
	BirthDate     string    `json:"birthDate,omitempty"`
	Gender        string    `json:"gender,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	Address       string    `json:"address,omitempty"`
	Province      string    `json:"province,omitempty"`
	Municipality  string    `json:"municipality,omitempty"`
	Education     string    `json:"education,omitempty"`
	MaritalStatus string    `json:"maritalStatus,omitempty"`
	Location      *GeoPoint `json:"location,omitempty"`
}

// RegistrationStatus is pending until a manager approves or rejects it.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationRejected RegistrationStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s RegistrationStatus) Terminal() bool {
	return s == RegistrationApproved || s == RegistrationRejected
}

// RequiredDocuments are the document kinds every registration must carry.
var RequiredDocuments = []string{"bi", "certificate", "photo", "residence"}

// DocumentsStatus summarises which required documents were submitted.
type DocumentsStatus struct {
	Total     int      `json:"total"`
	Submitted int      `json:"submitted"`
	Missing   []string `json:"missing"`
	Complete  bool     `json:"complete"`
}

type Registration struct {
	Meta
	CitizenID       string             `json:"citizenId"`
	CitizenName     string             `json:"citizenName"`
	CitizenBI       string             `json:"citizenBI"`
	CitizenPhone    string             `json:"citizenPhone"`
	CourseID        string             `json:"courseId"`
	CourseName      string             `json:"courseName"`
	CenterID        string             `json:"centerId"`
	CenterName      string             `json:"centerName"`
	Motivation      string             `json:"motivation,omitempty"`
	Documents       map[string]string  `json:"documents,omitempty"`
	Status          RegistrationStatus `json:"status"`
	SubmittedAt     time.Time          `json:"submittedAt,omitzero"`
	ApprovedBy      string             `json:"approvedBy,omitempty"`
	ApprovedAt      time.Time          `json:"approvedAt,omitzero"`
	RejectedBy      string             `json:"rejectedBy,omitempty"`
	RejectedAt      time.Time          `json:"rejectedAt,omitzero"`
	RejectionReason string             `json:"rejectionReason,omitempty"`
	DocumentsStatus DocumentsStatus    `json:"documentsStatus"`
}

const (
	CenterActive   = "active"
	CenterInactive = "inactive"
)

type Center struct {
	Meta
	Name           string    `json:"name"`
	Address        string    `json:"address,omitempty"`
	Province       string    `json:"province"`
	Municipality   string    `json:"municipality,omitempty"`
	Location       *GeoPoint `json:"location,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Email          string    `json:"email,omitempty"`
	Status         string    `json:"status"`
	Capacity       int       `json:"capacity"`
	CoursesOffered []string  `json:"coursesOffered,omitempty"`
	Facilities     []string  `json:"facilities,omitempty"`
}

type Course struct {
	Meta
	Name         string   `json:"name"`
	Area         string   `json:"area"`
	Duration     int      `json:"duration"`
	DurationType string   `json:"durationType,omitempty"`
	Modality     string   `json:"modality,omitempty"`
	Description  string   `json:"description,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	CenterID     string   `json:"centerId"`
	MaxStudents  int      `json:"maxStudents"`
	Schedule     string   `json:"schedule,omitempty"`
	Cost         float64  `json:"cost"`
	Certificate  bool     `json:"certificate"`
}

// Competency is an (area, level, grade, certificate) tuple held by a graduate.
type Competency struct {
	Area          string  `json:"area"`
	Course        string  `json:"course,omitempty"`
	Level         string  `json:"level,omitempty"`
	Grade         float64 `json:"grade"`
	CertificateID string  `json:"certificateId,omitempty"`
}

type Graduate struct {
	Meta
	CitizenID       string       `json:"citizenId,omitempty"`
	Name            string       `json:"name"`
	BirthDate       string       `json:"birthDate,omitempty"`
	Age             int          `json:"age,omitempty"`
	Location        string       `json:"location,omitempty"`
	Phone           string       `json:"phone,omitempty"`
	Email           string       `json:"email,omitempty"`
	Competencies    []Competency `json:"competencies"`
	ExperienceLevel string       `json:"experienceLevel,omitempty"`
	Availability    string       `json:"availability,omitempty"`
	WorkType        string       `json:"workType,omitempty"`
	Rating          float64      `json:"rating,omitempty"`
	GraduatedAt     time.Time    `json:"graduatedAt,omitzero"`
	Verified        bool         `json:"verified"`
}

// HasCompetency reports whether g holds a competency in area.
func (g Graduate) HasCompetency(area string) bool {
	for _, c := range g.Competencies {
		if c.Area == area {
			return true
		}
	}
	return false
}

// AgeAt returns the graduate's age on day now, computed from BirthDate when it
// parses and falling back to the stored Age otherwise.
func (g Graduate) AgeAt(now time.Time) int {
	birth, err := time.Parse(time.DateOnly, g.BirthDate)
	if err != nil {
		return g.Age
	}
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

type Certificate struct {
	Meta
	Code       string    `json:"code"`
	StudentID  string    `json:"studentId"`
	CourseID   string    `json:"courseId,omitempty"`
	CourseName string    `json:"courseName,omitempty"`
	IssuedAt   time.Time `json:"issuedAt,omitzero"`
}

// Authentic is the demo signature check: code, issuedAt and studentId are
// all present.
func (c Certificate) Authentic() bool {
	return c.Code != "" && !c.IssuedAt.IsZero() && c.StudentID != ""
}

type Employer struct {
	Meta
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Sector  string `json:"sector,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Status  string `json:"status,omitempty"`
}

const (
	InternshipActive = "active"
	InternshipClosed = "closed"
)

type Internship struct {
	Meta
	EmployerID string    `json:"empregadorId"`
	GraduateID string    `json:"graduateId,omitempty"`
	Title      string    `json:"title"`
	Area       string    `json:"area,omitempty"`
	Status     string    `json:"status"`
	StartDate  time.Time `json:"startDate,omitzero"`
}

const (
	JobOpen   = "open"
	JobClosed = "closed"
)

type JobListing struct {
	Meta
	EmployerID  string `json:"empregadorId"`
	Title       string `json:"title"`
	Area        string `json:"area,omitempty"`
	Location    string `json:"location,omitempty"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
}

type Notification struct {
	Meta
	UserID  string    `json:"userId"`
	Type    string    `json:"type"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt,omitzero"`
	Read    bool      `json:"read"`
	ReadAt  time.Time `json:"readAt,omitzero"`
}

// Activity types written by the portal and the auth service.
const (
	ActivityUserLogin            = "user_login"
	ActivityUserLogout           = "user_logout"
	ActivityUserRegistered       = "user_registered"
	ActivityUserActivated        = "user_activated"
	ActivityPasswordChanged      = "password_changed"
	ActivityPasswordReset        = "password_reset"
	ActivityRegistrationApproved = "registration_approved"
	ActivityRegistrationRejected = "registration_rejected"
	ActivityCertificateVerified  = "certificate_verified"
)

type Activity struct {
	Meta
	Type      string    `json:"type"`
	UserID    string    `json:"userId,omitempty"`
	TargetID  string    `json:"targetId,omitempty"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Verification struct {
	Meta
	EmployerID      string    `json:"empregadorId"`
	CertificateID   string    `json:"certificateId"`
	CertificateCode string    `json:"certificateCode"`
	VerifiedAt      time.Time `json:"verifiedAt"`
}
