package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindNone},
		{"not found", fmt.Errorf("%w: citizen", ErrNotFound), KindNotFound},
		{"double wrapped validation", fmt.Errorf("submit: %w", fmt.Errorf("%w: bad role", ErrValidation)), KindValidation},
		{"auth", ErrAuth, KindAuth},
		{"conflict", fmt.Errorf("%w: email", ErrConflict), KindConflict},
		{"other", errors.New("disk full"), KindInternal},
	}
	for _, tc := range cases {
		if got := KindOf(tc.err); got != tc.want {
			t.Fatalf("%s: KindOf=%q, want %q", tc.name, got, tc.want)
		}
	}
}
