package core

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestCredentialVerifier(t *testing.T) {
	v := NewCredentialVerifier(true, bcrypt.MinCost)
	hash, err := v.HashSecret("password")
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}

	cases := []struct {
		name   string
		secret string
		stored string
		want   bool
	}{
		{"bcrypt match", "password", hash, true},
		{"bcrypt mismatch", "Password", hash, false},
		{"sha256 match", "password", LegacyDigest("password"), true},
		{"sha256 mismatch", "password1", LegacyDigest("password"), false},
		{"sha256 upper-case digest", "password", strings.ToUpper(LegacyDigest("password")), false},
		{"plaintext match", "password", "password", true},
		{"plaintext mismatch", "password", "passw0rd", false},
		{"39 chars is plaintext", strings.Repeat("a", 39), strings.Repeat("a", 39), true},
		{"40 chars is a digest", strings.Repeat("a", 40), strings.Repeat("a", 40), false},
		{"empty stored", "", "", false},
		{"empty secret", "", LegacyDigest(""), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := v.Verify(tc.secret, tc.stored); got != tc.want {
				t.Fatalf("Verify(%q, %q) = %v, want %v", tc.secret, tc.stored, got, tc.want)
			}
		})
	}
}

func TestCredentialVerifierPlaintextDisabled(t *testing.T) {
	v := NewCredentialVerifier(false, bcrypt.MinCost)
	if v.Verify("password", "password") {
		t.Fatalf("plaintext digest accepted with legacy path disabled")
	}
	if !v.Verify("password", LegacyDigest("password")) {
		t.Fatalf("sha256 digest rejected")
	}
}

func TestLegacyDigest(t *testing.T) {
	const want = "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"
	if got := LegacyDigest("password"); got != want {
		t.Fatalf("LegacyDigest = %s", got)
	}
}

func TestHashSecretWritesBcrypt(t *testing.T) {
	v := NewCredentialVerifier(true, 0)
	if v.cost != bcrypt.DefaultCost {
		t.Fatalf("cost = %d", v.cost)
	}
	v = NewCredentialVerifier(true, bcrypt.MinCost)
	hash, err := v.HashSecret("s3cret")
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	if !isBcryptHash(hash) {
		t.Fatalf("not a bcrypt hash: %s", hash)
	}
}
