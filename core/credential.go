package core

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Stored digests shorter than this are un-migrated plaintext passwords.
const legacyPlaintextThreshold = 40

// CredentialVerifier decides whether a plaintext secret matches a stored digest.
//
// Three digest generations are accepted: bcrypt (written by this service),
// unsalted SHA-256 hex (written by the old dashboard) and plaintext rows that
// were never migrated. The plaintext path can be switched off.
type CredentialVerifier struct {
	allowPlaintext bool
	cost           int
}

func NewCredentialVerifier(allowPlaintext bool, bcryptCost int) *CredentialVerifier {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &CredentialVerifier{allowPlaintext: allowPlaintext, cost: bcryptCost}
}

// Verify never fails for well-formed input; any mismatch is false.
func (v *CredentialVerifier) Verify(secret, stored string) bool {
	switch {
	case isBcryptHash(stored):
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)) == nil
	case len(stored) < legacyPlaintextThreshold:
		if !v.allowPlaintext || stored == "" {
			return false
		}
		return subtle.ConstantTimeCompare([]byte(secret), []byte(stored)) == 1
	default:
		return subtle.ConstantTimeCompare([]byte(LegacyDigest(secret)), []byte(stored)) == 1
	}
}

// HashSecret produces the digest stored for new or reset passwords.
func (v *CredentialVerifier) HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), v.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// LegacyDigest is the unsalted SHA-256 lowercase hex digest used by rows
// created before bcrypt.
func LegacyDigest(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$")
}
