package core

import "testing"

func TestNewUserInputValidate(t *testing.T) {
	base := NewUserInput{FirstName: " Ann ", LastName: "Lee", Email: "ann@gym.com", Password: "secret", ConfirmPassword: "secret"}
	nu, err := base.Validate()
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if nu.FirstName != "Ann" || nu.Role != RoleMember || !nu.IsActive || nu.PasswordHash != "" {
		t.Fatalf("nu = %+v", nu)
	}

	staff := base
	staff.Role = "Staff"
	if nu, err := staff.Validate(); err != nil || nu.Role != RoleStaff {
		t.Fatalf("role = %v, err = %v", nu.Role, err)
	}

	cases := []struct {
		name   string
		mutate func(*NewUserInput)
		want   string
	}{
		{"blank last name", func(in *NewUserInput) { in.LastName = " " }, "last_name is required"},
		{"missing email", func(in *NewUserInput) { in.Email = "" }, "email is required"},
		{"display name email", func(in *NewUserInput) { in.Email = "Ann <ann@gym.com>" }, `invalid email address "Ann <ann@gym.com>"`},
		{"short password", func(in *NewUserInput) { in.Password, in.ConfirmPassword = "short", "short" }, "password must be at least 6 characters"},
		{"mismatch", func(in *NewUserInput) { in.ConfirmPassword = "secreT" }, "passwords do not match"},
		{"unknown role", func(in *NewUserInput) { in.Role = "owner" }, `invalid role "owner"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base
			tc.mutate(&in)
			_, err := in.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if err.Error() != tc.want {
				t.Fatalf("error = %q, want %q", err.Error(), tc.want)
			}
		})
	}
}

func TestSameUserID(t *testing.T) {
	id := "3f2b8c1e-9a4d-4e6f-8b1a-2c3d4e5f6a7b"
	cases := []struct {
		a, b string
		want bool
	}{
		{id, id, true},
		{id, "3F2B8C1E-9A4D-4E6F-8B1A-2C3D4E5F6A7B", true},
		{"{" + id + "}", id, true},
		{id, "3f2b8c1e-9a4d-4e6f-8b1a-2c3d4e5f6a7c", false},
		{"missing", "missing", true},
		{"missing", id, false},
	}
	for _, tc := range cases {
		if got := sameUserID(tc.a, tc.b); got != tc.want {
			t.Errorf("sameUserID(%q, %q) = %v", tc.a, tc.b, got)
		}
	}
}
