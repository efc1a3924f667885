package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maptss.ao/internal/errs"
	"maptss.ao/internal/kv"
	"maptss.ao/internal/testutil"
)

var cheapHash = HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, KeyLength: 32, SaltLength: 16}

type recorded struct {
	activityType, userID, targetID, details string
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []recorded
	err    error
}

func (f *fakeRecorder) Record(_ context.Context, activityType, userID, targetID, details string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recorded{activityType, userID, targetID, details})
	return f.err
}

func (f *fakeRecorder) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.activityType)
	}
	return out
}

type fixture struct {
	svc   *Service
	mem   *kv.Memory
	clock *testutil.StubClock
	rec   *fakeRecorder
}

func newFixture(t *testing.T, opts ...ServiceOption) fixture {
	t.Helper()
	f := fixture{mem: kv.NewMemory(), clock: testutil.FixedClock(), rec: &fakeRecorder{}}
	base := []ServiceOption{
		WithClock(f.clock.Now),
		WithHashParams(cheapHash),
		WithRecorder(f.rec),
		WithSecret("test-secret"),
	}
	svc, err := NewService(context.Background(), f.mem, append(base, opts...)...)
	require.NoError(t, err)
	_, err = svc.SeedDefaultUsers(context.Background())
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestPasswordHashRoundTrip(t *testing.T) {
	encoded, err := HashPassword("s3cret", cheapHash)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$"))

	ok, err := VerifyPassword(encoded, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(encoded, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = VerifyPassword("plain", "s3cret")
	assert.Error(t, err)
}

func TestGenerateTempPassword(t *testing.T) {
	pw, err := generateTempPassword(8)
	require.NoError(t, err)
	assert.Len(t, pw, 8)
	for _, c := range "0O1lI" {
		assert.NotContains(t, pw, string(c))
	}
}

func TestSeedDefaultUsersOnce(t *testing.T) {
	f := newFixture(t)
	users, err := f.svc.Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 4)

	n, err := f.svc.SeedDefaultUsers(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	for _, u := range users {
		assert.True(t, u.Active, u.Email)
		assert.Equal(t, PermissionsFor(u.Role), u.Permissions)
		assert.NotContains(t, u.PasswordHash, "123")
	}
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, "admin@maptss.ao", "admin123", RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "user_admin_001", res.User.ID)
	assert.Equal(t, RoleAdmin, res.Session.Role)
	assert.Equal(t, f.clock.Now(), res.Session.LoginTime)
	assert.Equal(t, f.clock.Now().Add(DefaultSessionTTL), res.Session.ExpiresAt)
	assert.ElementsMatch(t, []string{PermFullAccess, PermManageUsers, PermSystemAdministration, PermViewAllData, PermBackupRestore}, res.Session.Permissions)
	assert.NotEmpty(t, res.Session.Token)

	assert.True(t, f.svc.IsAuthenticated())
	assert.True(t, f.svc.HasPermission(PermBackupRestore))
	assert.False(t, f.svc.HasPermission(PermSearchGraduates))
	assert.True(t, f.svc.HasRole(RoleAdmin))
	assert.False(t, f.svc.HasRole(RoleCitizen))

	require.Len(t, f.rec.events, 1)
	assert.Equal(t, recorded{"user_login", "user_admin_001", "", "Login realizado com sucesso - admin"}, f.rec.events[0])
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t, WithLoginLimit(time.Minute, 0))
	ctx := context.Background()

	_, err := f.svc.Login(ctx, "admin@maptss.ao", "wrong", RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, errs.KindAuth, errs.KindOf(err))

	// right password, wrong role
	_, err = f.svc.Login(ctx, "admin@maptss.ao", "admin123", RoleManager)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "nobody@maptss.ao", "admin123", RoleAdmin)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, f.svc.DeactivateUser(ctx, "user_gestor_001"))
	_, err = f.svc.Login(ctx, "gestor@maptss.ao", "gestor123", RoleManager)
	assert.ErrorIs(t, err, ErrAccountDisabled)

	assert.False(t, f.svc.IsAuthenticated())
	assert.Empty(t, f.rec.events)
}

func TestLoginThrottle(t *testing.T) {
	f := newFixture(t, WithLoginLimit(time.Minute, 3))
	ctx := context.Background()

	for range 3 {
		_, err := f.svc.Login(ctx, "admin@maptss.ao", "wrong", RoleAdmin)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := f.svc.Login(ctx, "admin@maptss.ao", "admin123", RoleAdmin)
	require.ErrorIs(t, err, ErrTooManyAttempts)

	// other accounts are unaffected
	_, err = f.svc.Login(ctx, "gestor@maptss.ao", "gestor123", RoleManager)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	_, err = f.svc.Login(ctx, "ADMIN@maptss.ao", "admin123", RoleAdmin)
	require.NoError(t, err)
}

func TestSessionExpiryAndExtend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Login(ctx, "rh@empresa.ao", "empregador123", RoleEmployer)
	require.NoError(t, err)

	f.clock.Advance(7 * time.Hour)
	ok, err := f.svc.ExtendSession(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	sess, ok := f.svc.CurrentSession()
	require.True(t, ok)
	assert.Equal(t, f.clock.Now().Add(DefaultSessionTTL), sess.ExpiresAt)

	f.clock.Advance(DefaultSessionTTL)
	assert.False(t, f.svc.IsAuthenticated())
	assert.False(t, f.svc.HasPermission(PermSearchGraduates))
	_, err = f.svc.RequireSession()
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	ok, err = f.svc.ExtendSession(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, f.svc.IsAuthenticated())
}

func TestSessionPersistsAcrossRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Login(ctx, "joao.silva@email.com", "citizen123", RoleCitizen)
	require.NoError(t, err)

	again, err := NewService(ctx, f.mem, WithClock(f.clock.Now), WithSecret("test-secret"))
	require.NoError(t, err)
	sess, ok := again.CurrentSession()
	require.True(t, ok)
	assert.Equal(t, res.Session.ID, sess.ID)

	f.clock.Advance(9 * time.Hour)
	expired, err := NewService(ctx, f.mem, WithClock(f.clock.Now))
	require.NoError(t, err)
	assert.False(t, expired.IsAuthenticated())
	_, err = f.mem.Get(ctx, SessionKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestUnreadableSessionIsDropped(t *testing.T) {
	mem := kv.NewMemory()
	require.NoError(t, mem.Set(context.Background(), SessionKey, "{not json"))
	svc, err := NewService(context.Background(), mem)
	require.NoError(t, err)
	assert.False(t, svc.IsAuthenticated())
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// without a session
	require.NoError(t, f.svc.Logout(ctx))
	assert.Empty(t, f.rec.events)

	_, err := f.svc.Login(ctx, "gestor@maptss.ao", "gestor123", RoleManager)
	require.NoError(t, err)
	require.NoError(t, f.svc.Logout(ctx))
	require.NoError(t, f.svc.Logout(ctx))
	assert.False(t, f.svc.IsAuthenticated())
	assert.Equal(t, []string{"user_login", "user_logout"}, f.rec.types())
}

func TestAuthenticateToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Login(ctx, "gestor@maptss.ao", "gestor123", RoleManager)
	require.NoError(t, err)

	sess, err := f.svc.AuthenticateToken(ctx, res.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Session.ID, sess.ID)

	_, err = f.svc.AuthenticateToken(ctx, res.Session.Token+"x")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = f.svc.AuthenticateToken(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewService(ctx, kv.NewMemory(), WithSecret("other-secret"), WithClock(f.clock.Now))
	require.NoError(t, err)
	_, err = other.AuthenticateToken(ctx, res.Session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// a new login replaces the session and invalidates the old token
	_, err = f.svc.Login(ctx, "admin@maptss.ao", "admin123", RoleAdmin)
	require.NoError(t, err)
	_, err = f.svc.AuthenticateToken(ctx, res.Session.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateExpiredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Login(ctx, "gestor@maptss.ao", "gestor123", RoleManager)
	require.NoError(t, err)

	f.clock.Advance(DefaultSessionTTL + time.Second)
	_, err = f.svc.AuthenticateToken(ctx, res.Session.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestRevokeSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Login(ctx, "gestor@maptss.ao", "gestor123", RoleManager)
	require.NoError(t, err)

	active := f.svc.ActiveSessions()
	require.Len(t, active, 1)
	assert.Equal(t, res.Session.ID, active[0].ID)

	require.NoError(t, f.svc.RevokeSession(ctx, "unknown"))
	assert.True(t, f.svc.IsAuthenticated())
	require.NoError(t, f.svc.RevokeSession(ctx, res.Session.ID))
	assert.False(t, f.svc.IsAuthenticated())
	assert.Empty(t, f.svc.ActiveSessions())

	_, err = f.svc.Login(ctx, "gestor@maptss.ao", "gestor123", RoleManager)
	require.NoError(t, err)
	require.NoError(t, f.svc.RevokeAllSessions(ctx, "user_admin_001"))
	assert.True(t, f.svc.IsAuthenticated())
	require.NoError(t, f.svc.RevokeAllSessions(ctx, "user_gestor_001"))
	assert.False(t, f.svc.IsAuthenticated())
}

func TestRegister(t *testing.T) {
	gen := testutil.NewStubIDGenerator()
	f := newFixture(t, WithIDGenerator(gen.New))
	ctx := context.Background()

	res, err := f.svc.Register(ctx, RegisterRequest{Email: "ana@email.com", Password: "pw", Name: "Ana", Role: RoleCitizen})
	require.NoError(t, err)
	assert.Equal(t, RegisterResult{UserID: "user_id-1", RequiresActivation: false}, res)

	_, err = f.svc.Login(ctx, "ana@email.com", "pw", RoleCitizen)
	require.NoError(t, err)

	res, err = f.svc.Register(ctx, RegisterRequest{Email: "rh@outra.ao", Password: "pw", Role: RoleEmployer, Company: "Outra"})
	require.NoError(t, err)
	assert.True(t, res.RequiresActivation)
	_, err = f.svc.Login(ctx, "rh@outra.ao", "pw", RoleEmployer)
	assert.ErrorIs(t, err, ErrAccountDisabled)

	require.NoError(t, f.svc.ActivateUser(ctx, res.UserID))
	_, err = f.svc.Login(ctx, "rh@outra.ao", "pw", RoleEmployer)
	require.NoError(t, err)

	assert.Contains(t, f.rec.types(), "user_registered")
	assert.Contains(t, f.rec.types(), "user_activated")
}

func TestRegisterRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, RegisterRequest{Email: " Admin@MAPTSS.ao ", Password: "pw", Role: RoleCitizen})
	assert.ErrorIs(t, err, ErrEmailAlreadyUsed)
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))

	_, err = f.svc.Register(ctx, RegisterRequest{Email: "x@y.ao", Password: "pw", Role: "root"})
	assert.ErrorIs(t, err, ErrInvalidRole)
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = f.svc.Register(ctx, RegisterRequest{Email: "", Password: "pw", Role: RoleCitizen})
	assert.ErrorIs(t, err, ErrInvalidInput)

	users, err := f.svc.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 4)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.ChangePassword(ctx, "user_citizen_001", "bad", "novo123")
	assert.ErrorIs(t, err, ErrInvalidCurrentPassword)
	err = f.svc.ChangePassword(ctx, "missing", "citizen123", "novo123")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	require.NoError(t, f.svc.ChangePassword(ctx, "user_citizen_001", "citizen123", "novo123"))
	_, err = f.svc.Login(ctx, "joao.silva@email.com", "citizen123", RoleCitizen)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "joao.silva@email.com", "novo123", RoleCitizen)
	require.NoError(t, err)

	u, err := f.svc.User(ctx, "user_citizen_001")
	require.NoError(t, err)
	assert.Equal(t, f.clock.Now(), u.PasswordChangedAt)
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ResetPassword(ctx, "gestor@maptss.ao", RoleAdmin)
	assert.ErrorIs(t, err, ErrUserNotFound)

	res, err := f.svc.ResetPassword(ctx, "gestor@maptss.ao", RoleManager)
	require.NoError(t, err)
	assert.Len(t, res.TempPassword, 8)
	assert.NotEmpty(t, res.Message)

	u, err := f.svc.User(ctx, "user_gestor_001")
	require.NoError(t, err)
	assert.True(t, u.MustChangePassword)
	assert.Equal(t, f.clock.Now(), u.PasswordResetAt)

	_, err = f.svc.Login(ctx, "gestor@maptss.ao", "gestor123", RoleManager)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "gestor@maptss.ao", res.TempPassword, RoleManager)
	require.NoError(t, err)

	require.NoError(t, f.svc.ChangePassword(ctx, "user_gestor_001", res.TempPassword, "gestor456"))
	u, err = f.svc.User(ctx, "user_gestor_001")
	require.NoError(t, err)
	assert.False(t, u.MustChangePassword)
}

func TestTwoFactor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.svc.VerifyTwoFactor(ctx, "user_admin_001", "123456")
	require.NoError(t, err)
	assert.False(t, ok)

	setup, err := f.svc.EnableTwoFactor(ctx, "user_admin_001")
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.QRCodeURL, "otpauth://totp/")

	code, err := totp.GenerateCodeCustom(setup.Secret, f.clock.Now(), totp.ValidateOpts{
		Period: 30, Digits: otp.DigitsSix, Algorithm: otp.AlgorithmSHA1,
	})
	require.NoError(t, err)
	ok, err = f.svc.VerifyTwoFactor(ctx, "user_admin_001", code)
	require.NoError(t, err)
	assert.True(t, ok)

	// one period of drift is tolerated, three is not
	f.clock.Advance(30 * time.Second)
	ok, _ = f.svc.VerifyTwoFactor(ctx, "user_admin_001", code)
	assert.True(t, ok)
	f.clock.Advance(60 * time.Second)
	ok, _ = f.svc.VerifyTwoFactor(ctx, "user_admin_001", code)
	assert.False(t, ok)

	ok, err = f.svc.VerifyTwoFactor(ctx, "nobody", code)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.svc.DisableTwoFactor(ctx, "user_admin_001"))
	u, err := f.svc.User(ctx, "user_admin_001")
	require.NoError(t, err)
	assert.False(t, u.TwoFactorEnabled)
	assert.Empty(t, u.TwoFactorSecret)
}

func TestRecorderFailureDoesNotFailLogin(t *testing.T) {
	f := newFixture(t)
	f.rec.err = errors.New("disk full")
	_, err := f.svc.Login(context.Background(), "admin@maptss.ao", "admin123", RoleAdmin)
	require.NoError(t, err)
	assert.True(t, f.svc.IsAuthenticated())
}

func TestPermissionsForIsACopy(t *testing.T) {
	perms := PermissionsFor(RoleCitizen)
	require.NotEmpty(t, perms)
	perms[0] = "tampered"
	assert.NotEqual(t, "tampered", PermissionsFor(RoleCitizen)[0])
	assert.Empty(t, PermissionsFor("ghost"))
}

func TestContextHelpers(t *testing.T) {
	ctx := ContextWithSession(context.Background(), Session{ID: "s1", UserID: "u1", Role: RoleManager})
	id, ok := UserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", id)
	role, ok := RoleFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, RoleManager, role)
	sess, ok := SessionFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "s1", sess.ID)

	_, ok = UserIDFromContext(context.Background())
	assert.False(t, ok)
}
