package enums

import "testing"

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"admin":    RoleAdmin,
		" Admin ":  RoleAdmin,
		"customer": RoleCustomer,
		"":         RoleCustomer,
		"owner":    RoleCustomer,
	}
	for input, want := range cases {
		if got := ParseRole(input); got != want {
			t.Fatalf("ParseRole(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestRoleIsValid(t *testing.T) {
	if !RoleAdmin.IsValid() || !RoleCustomer.IsValid() {
		t.Fatalf("expected known roles to be valid")
	}
	if Role("vendor").IsValid() {
		t.Fatalf("unexpected valid role")
	}
}
