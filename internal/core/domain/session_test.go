package domain

import (
	"errors"
	"testing"
)

func TestEffectiveRole(t *testing.T) {
	if got := EffectiveRole(nil); got != RoleGuest {
		t.Fatalf("nil user: got %s", got)
	}
	if got := EffectiveRole(&User{Role: RoleSeller}); got != RoleSeller {
		t.Fatalf("seller: got %s", got)
	}
	if got := EffectiveRole(&User{Role: Role("superuser")}); got != RoleGuest {
		t.Fatalf("unknown role must collapse to guest, got %s", got)
	}
}

func TestIsLocationRequired(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{ErrLocationRequired, true},
		{errors.New("Location is required for seller accounts"), true},
		{errors.New("invalid credentials"), false},
	}
	for _, tc := range cases {
		if got := IsLocationRequired(tc.err); got != tc.want {
			t.Fatalf("IsLocationRequired(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
