package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"maptss.ao/internal/ids"
	"maptss.ao/internal/kv"
	"maptss.ao/internal/model"
	"maptss.ao/internal/obs"
)

const (
	// DefaultSessionTTL is the absolute lifetime of a session.
	DefaultSessionTTL = 8 * time.Hour

	defaultLoginBurst    = 5
	defaultLoginInterval = time.Minute
	tempPasswordLength   = 8
)

// ActivityRecorder appends audit activities. The audit package provides the
// persistent implementation.
type ActivityRecorder interface {
	Record(ctx context.Context, activityType, userID, targetID, details string) error
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string, string, string, string) error { return nil }

// Service authenticates users and manages the current session. The session
// is persisted so it survives a restart; expired sessions are dropped on load.
type Service struct {
	mu       sync.Mutex
	store    kvStore
	now      func() time.Time
	newID    ids.Generator
	recorder ActivityRecorder
	logger   *slog.Logger
	hash     HashParams
	ttl      time.Duration
	secret   []byte

	loginEvery time.Duration
	loginBurst int
	limiters   map[string]*rate.Limiter

	current *Session
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithIDGenerator overrides the user id source. Ids are prefixed with "user_".
func WithIDGenerator(gen ids.Generator) ServiceOption {
	return func(s *Service) error {
		if gen != nil {
			s.newID = ids.Prefixed("user", gen)
		}
		return nil
	}
}

// WithRecorder sets where login, logout and account activities go.
func WithRecorder(r ActivityRecorder) ServiceOption {
	return func(s *Service) error {
		if r != nil {
			s.recorder = r
		}
		return nil
	}
}

// WithLogger overrides the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) error {
		if l != nil {
			s.logger = l
		}
		return nil
	}
}

// WithHashParams tunes argon2id; tests use cheap parameters.
func WithHashParams(p HashParams) ServiceOption {
	return func(s *Service) error {
		if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 || p.KeyLength < 16 || p.SaltLength < 8 {
			return fmt.Errorf("auth: invalid hash parameters %+v", p)
		}
		s.hash = p
		return nil
	}
}

// WithSessionTTL overrides DefaultSessionTTL.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.ttl = ttl
		}
		return nil
	}
}

// WithSecret sets the HMAC key for session tokens. Without it a random key is
// generated and tokens do not survive a restart.
func WithSecret(secret string) ServiceOption {
	return func(s *Service) error {
		if strings.TrimSpace(secret) == "" {
			return nil
		}
		s.secret = []byte(secret)
		return nil
	}
}

// WithLoginLimit allows burst failed logins per email, refilled one per
// every. burst <= 0 disables throttling.
func WithLoginLimit(every time.Duration, burst int) ServiceOption {
	return func(s *Service) error {
		if burst > 0 && every <= 0 {
			return errors.New("auth: login limit interval must be positive")
		}
		s.loginEvery = every
		s.loginBurst = burst
		return nil
	}
}

// NewService constructs Service and restores a persisted, still valid session.
func NewService(ctx context.Context, substrate kv.Store, opts ...ServiceOption) (*Service, error) {
	if substrate == nil {
		return nil, errors.New("auth: kv substrate is required")
	}
	svc := &Service{
		store:      kvStore{kv: substrate},
		now:        time.Now,
		newID:      ids.Prefixed("user", ids.New),
		recorder:   nopRecorder{},
		logger:     obs.Logger(),
		hash:       DefaultHashParams,
		ttl:        DefaultSessionTTL,
		loginEvery: defaultLoginInterval,
		loginBurst: defaultLoginBurst,
		limiters:   make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	if len(svc.secret) == 0 {
		svc.secret = make([]byte, 32)
		if _, err := rand.Read(svc.secret); err != nil {
			return nil, fmt.Errorf("auth: generate secret: %w", err)
		}
	}
	if err := svc.loadSession(ctx); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *Service) loadSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.store.session(ctx)
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}
	if !sess.ValidAt(s.now()) {
		s.logger.Info("discarding expired session", "user_id", sess.UserID, "expired_at", sess.ExpiresAt)
		return s.store.clearSession(ctx)
	}
	s.current = sess
	return nil
}

// Login checks email, password and role and opens a session valid for the
// configured TTL. Repeated failures for one email are throttled.
func (s *Service) Login(ctx context.Context, email, password string, role Role) (LoginResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = strings.TrimSpace(email)
	now := s.now()
	limiter := s.limiterFor(email)
	if limiter != nil && limiter.TokensAt(now) < 1 {
		obs.LoginAttempts.WithLabelValues(string(role), "throttled").Inc()
		return LoginResult{}, ErrTooManyAttempts
	}

	users, err := s.store.users(ctx)
	if err != nil {
		return LoginResult{}, err
	}
	idx := findUser(users, func(u User) bool {
		if !strings.EqualFold(u.Email, email) || u.Role != role {
			return false
		}
		ok, err := VerifyPassword(u.PasswordHash, password)
		return err == nil && ok
	})
	if idx < 0 {
		if limiter != nil {
			limiter.AllowN(now, 1)
		}
		obs.LoginAttempts.WithLabelValues(string(role), "invalid").Inc()
		return LoginResult{}, ErrInvalidCredentials
	}
	user := users[idx]
	if !user.Active {
		obs.LoginAttempts.WithLabelValues(string(role), "disabled").Inc()
		return LoginResult{}, ErrAccountDisabled
	}
	delete(s.limiters, strings.ToLower(email))

	sess := Session{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Role:        user.Role,
		Permissions: PermissionsFor(user.Role),
		LoginTime:   now.UTC(),
		ExpiresAt:   now.Add(s.ttl).UTC(),
	}
	if sess.Token, err = signToken(s.secret, sess); err != nil {
		return LoginResult{}, err
	}
	if err := s.store.saveSession(ctx, sess); err != nil {
		return LoginResult{}, err
	}
	s.current = &sess
	obs.LoginAttempts.WithLabelValues(string(role), "success").Inc()
	s.record(ctx, model.ActivityUserLogin, user.ID, "", "Login realizado com sucesso - "+string(role))

	profile := user.Profile()
	profile.Permissions = append([]string(nil), sess.Permissions...)
	return LoginResult{User: profile, Session: sess}, nil
}

func (s *Service) limiterFor(email string) *rate.Limiter {
	if s.loginBurst <= 0 {
		return nil
	}
	key := strings.ToLower(email)
	lim, ok := s.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(s.loginEvery), s.loginBurst)
		s.limiters[key] = lim
	}
	return lim
}

// Logout ends the current session. Calling it without a session is a no-op.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logoutLocked(ctx)
}

func (s *Service) logoutLocked(ctx context.Context) error {
	if s.current != nil {
		s.record(ctx, model.ActivityUserLogout, s.current.UserID, "", "Logout realizado")
	}
	s.current = nil
	return s.store.clearSession(ctx)
}

// Register creates an account. Citizens are active at once; other roles
// wait for ActivateUser.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (RegisterResult, error) {
	if !req.Role.Valid() {
		return RegisterResult{}, fmt.Errorf("%w: %q", ErrInvalidRole, req.Role)
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return RegisterResult{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.store.users(ctx)
	if err != nil {
		return RegisterResult{}, err
	}
	if findUser(users, func(u User) bool { return strings.EqualFold(u.Email, req.Email) }) >= 0 {
		return RegisterResult{}, ErrEmailAlreadyUsed
	}
	hash, err := HashPassword(req.Password, s.hash)
	if err != nil {
		return RegisterResult{}, err
	}
	user := User{
		ID:           s.newID(),
		Email:        req.Email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Role:         req.Role,
		Permissions:  PermissionsFor(req.Role),
		Active:       req.Role == RoleCitizen,
		CitizenID:    req.CitizenID,
		Company:      req.Company,
		Sector:       req.Sector,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.saveUsers(ctx, append(users, user)); err != nil {
		return RegisterResult{}, err
	}
	s.record(ctx, model.ActivityUserRegistered, user.ID, "", "Nova conta criada - "+string(req.Role))
	return RegisterResult{UserID: user.ID, RequiresActivation: !user.Active}, nil
}

// ActivateUser enables an account created inactive.
func (s *Service) ActivateUser(ctx context.Context, userID string) error {
	return s.setActive(ctx, userID, true)
}

// DeactivateUser disables an account; later logins fail with ErrAccountDisabled.
func (s *Service) DeactivateUser(ctx context.Context, userID string) error {
	return s.setActive(ctx, userID, false)
}

func (s *Service) setActive(ctx context.Context, userID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.mutateUser(ctx, userID, func(u *User) error {
		u.Active = active
		return nil
	})
	if err != nil {
		return err
	}
	if active {
		s.record(ctx, model.ActivityUserActivated, userID, userID, "Conta activada")
	}
	return nil
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.mutateUser(ctx, userID, func(u *User) error {
		ok, err := VerifyPassword(u.PasswordHash, currentPassword)
		if err != nil || !ok {
			return ErrInvalidCurrentPassword
		}
		hash, err := HashPassword(newPassword, s.hash)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
		u.PasswordChangedAt = s.now().UTC()
		u.MustChangePassword = false
		return nil
	})
	if err != nil {
		return err
	}
	s.record(ctx, model.ActivityPasswordChanged, userID, "", "Senha alterada com sucesso")
	return nil
}

// ResetPassword replaces the password of the account matching email and role
// with a random temporary one, returned to the caller, and flags the account
// to change it.
func (s *Service) ResetPassword(ctx context.Context, email string, role Role) (ResetResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.store.users(ctx)
	if err != nil {
		return ResetResult{}, err
	}
	idx := findUser(users, func(u User) bool { return strings.EqualFold(u.Email, strings.TrimSpace(email)) && u.Role == role })
	if idx < 0 {
		return ResetResult{}, ErrUserNotFound
	}
	temp, err := generateTempPassword(tempPasswordLength)
	if err != nil {
		return ResetResult{}, fmt.Errorf("generate temporary password: %w", err)
	}
	hash, err := HashPassword(temp, s.hash)
	if err != nil {
		return ResetResult{}, err
	}
	users[idx].PasswordHash = hash
	users[idx].PasswordResetAt = s.now().UTC()
	users[idx].MustChangePassword = true
	if err := s.store.saveUsers(ctx, users); err != nil {
		return ResetResult{}, err
	}
	s.record(ctx, model.ActivityPasswordReset, users[idx].ID, "", "Password reset solicitado")
	return ResetResult{
		Message:      "Senha temporária enviada. Verifique seu email/SMS.",
		TempPassword: temp,
	}, nil
}

// IsAuthenticated reports whether a session exists and has not expired.
func (s *Service) IsAuthenticated() bool {
	_, ok := s.CurrentSession()
	return ok
}

// CurrentSession returns the session while it is valid.
func (s *Service) CurrentSession() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || !s.current.ValidAt(s.now()) {
		return Session{}, false
	}
	return *s.current, true
}

// HasPermission is true only with a valid session whose role grants perm.
func (s *Service) HasPermission(perm string) bool {
	sess, ok := s.CurrentSession()
	return ok && sess.HasPermission(perm)
}

// HasRole is true only with a valid session for role.
func (s *Service) HasRole(role Role) bool {
	sess, ok := s.CurrentSession()
	return ok && sess.Role == role
}

// ExtendSession pushes expiry to now + TTL. Expired sessions are not revived;
// false is returned instead.
func (s *Service) ExtendSession(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.current == nil || !s.current.ValidAt(now) {
		return false, nil
	}
	next := *s.current
	next.ExpiresAt = now.Add(s.ttl).UTC()
	token, err := signToken(s.secret, next)
	if err != nil {
		return false, err
	}
	next.Token = token
	if err := s.store.saveSession(ctx, next); err != nil {
		return false, err
	}
	s.current = &next
	return true, nil
}

// AuthenticateToken resolves a bearer token to the current session. Tokens of
// revoked, replaced or expired sessions are rejected.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	claims, err := parseToken(s.secret, token, now)
	if err != nil {
		return Session{}, err
	}
	if s.current == nil || s.current.ID != claims.ID {
		return Session{}, ErrInvalidToken
	}
	if !s.current.ValidAt(now) {
		return Session{}, ErrSessionExpired
	}
	return *s.current, nil
}

// RequireSession returns the valid current session or ErrNotAuthenticated.
func (s *Service) RequireSession() (Session, error) {
	sess, ok := s.CurrentSession()
	if !ok {
		return Session{}, ErrNotAuthenticated
	}
	return sess, nil
}

// ActiveSessions lists sessions that are still valid.
func (s *Service) ActiveSessions() []SessionInfo {
	sess, ok := s.CurrentSession()
	if !ok {
		return []SessionInfo{}
	}
	return []SessionInfo{{ID: sess.ID, UserID: sess.UserID, LoginTime: sess.LoginTime, ExpiresAt: sess.ExpiresAt}}
}

// RevokeSession logs out the session with sessionID. Unknown ids are ignored.
func (s *Service) RevokeSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.ID != sessionID {
		return nil
	}
	return s.logoutLocked(ctx)
}

// RevokeAllSessions logs out every session of userID.
func (s *Service) RevokeAllSessions(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.current.UserID != userID {
		return nil
	}
	return s.logoutLocked(ctx)
}

// User returns the stored account with id.
func (s *Service) User(ctx context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.store.users(ctx)
	if err != nil {
		return User{}, err
	}
	idx := findUser(users, func(u User) bool { return u.ID == id })
	if idx < 0 {
		return User{}, ErrUserNotFound
	}
	return users[idx], nil
}

// Users lists every account.
func (s *Service) Users(ctx context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.users(ctx)
}

func (s *Service) mutateUser(ctx context.Context, userID string, fn func(*User) error) error {
	users, err := s.store.users(ctx)
	if err != nil {
		return err
	}
	idx := findUser(users, func(u User) bool { return u.ID == userID })
	if idx < 0 {
		return ErrUserNotFound
	}
	if err := fn(&users[idx]); err != nil {
		return err
	}
	return s.store.saveUsers(ctx, users)
}

func (s *Service) record(ctx context.Context, activityType, userID, targetID, details string) {
	if err := s.recorder.Record(ctx, activityType, userID, targetID, details); err != nil {
		s.logger.Warn("record activity failed", "type", activityType, "user_id", userID, "error", err)
	}
}
