package auth

import (
	"context"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const twoFactorIssuer = "MAPTSS Digital+"

var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// EnableTwoFactor generates a TOTP secret for the user and turns on the
// second factor. The returned URL is what authenticator apps scan.
func (s *Service) EnableTwoFactor(ctx context.Context, userID string) (TwoFactorSetup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var setup TwoFactorSetup
	err := s.mutateUser(ctx, userID, func(u *User) error {
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      twoFactorIssuer,
			AccountName: u.Email,
			Period:      totpOpts.Period,
			Digits:      totpOpts.Digits,
			Algorithm:   totpOpts.Algorithm,
		})
		if err != nil {
			return fmt.Errorf("generate totp key: %w", err)
		}
		u.TwoFactorSecret = key.Secret()
		u.TwoFactorEnabled = true
		setup = TwoFactorSetup{Secret: key.Secret(), QRCodeURL: key.URL()}
		return nil
	})
	if err != nil {
		return TwoFactorSetup{}, err
	}
	return setup, nil
}

// DisableTwoFactor clears the secret.
func (s *Service) DisableTwoFactor(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateUser(ctx, userID, func(u *User) error {
		u.TwoFactorEnabled = false
		u.TwoFactorSecret = ""
		return nil
	})
}

// VerifyTwoFactor checks code against the user's secret, allowing one period
// of clock drift. Unknown users and users without 2FA never verify.
func (s *Service) VerifyTwoFactor(ctx context.Context, userID, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.store.users(ctx)
	if err != nil {
		return false, err
	}
	idx := findUser(users, func(u User) bool { return u.ID == userID })
	if idx < 0 || !users[idx].TwoFactorEnabled || users[idx].TwoFactorSecret == "" {
		return false, nil
	}
	ok, err := totp.ValidateCustom(code, users[idx].TwoFactorSecret, s.now().UTC(), totpOpts)
	if err != nil {
		return false, nil
	}
	return ok, nil
}
