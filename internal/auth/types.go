package auth

import "time"

// User is a stored account. Users live in one JSON array outside the record
// collections.
type User struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	PasswordHash       string    `json:"passwordHash"`
	Name               string    `json:"name"`
	Role               Role      `json:"userType"`
	Permissions        []string  `json:"permissions"`
	Active             bool      `json:"active"`
	CitizenID          string    `json:"citizenId,omitempty"`
	Company            string    `json:"company,omitempty"`
	Sector             string    `json:"sector,omitempty"`
	MustChangePassword bool      `json:"mustChangePassword,omitempty"`
	TwoFactorEnabled   bool      `json:"twoFactorEnabled,omitempty"`
	TwoFactorSecret    string    `json:"twoFactorSecret,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	PasswordChangedAt  time.Time `json:"passwordChangedAt,omitzero"`
	PasswordResetAt    time.Time `json:"passwordResetAt,omitzero"`
}

// Profile is the public view of a user.
type Profile struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        Role     `json:"userType"`
	Permissions []string `json:"permissions"`
	CitizenID   string   `json:"citizenId,omitempty"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		Permissions: append([]string(nil), u.Permissions...),
		CitizenID:   u.CitizenID,
	}
}

// Session is the authenticated state issued by Login.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        Role      `json:"userType"`
	Permissions []string  `json:"permissions"`
	LoginTime   time.Time `json:"loginTime"`
	ExpiresAt   time.Time `json:"expiresAt"`
	// Token is a signed bearer token naming this session.
	Token string `json:"token,omitempty"`
}

// ValidAt reports whether the session has not yet expired at now.
func (s Session) ValidAt(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// HasPermission reports whether perm is in the session's permission set.
func (s Session) HasPermission(perm string) bool {
	for _, p := range s.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	User    Profile `json:"user"`
	Session Session `json:"session"`
}

// RegisterRequest carries the fields accepted by Register.
type RegisterRequest struct {
	Email     string
	Password  string
	Name      string
	Role      Role
	CitizenID string
	Company   string
	Sector    string
}

type RegisterResult struct {
	UserID             string `json:"userId"`
	RequiresActivation bool   `json:"requiresActivation"`
}

// ResetResult hands the temporary password back to the caller, standing in
// for out-of-band delivery.
type ResetResult struct {
	Message      string `json:"message"`
	TempPassword string `json:"tempPassword"`
}

type TwoFactorSetup struct {
	Secret    string `json:"secret"`
	QRCodeURL string `json:"qrCodeUrl"`
}

// SessionInfo describes an active session for administrative listing.
type SessionInfo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	LoginTime time.Time `json:"loginTime"`
	ExpiresAt time.Time `json:"expiresAt"`
}
