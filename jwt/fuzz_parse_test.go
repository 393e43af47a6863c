package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"
)

// FuzzRoles exercises claim extraction with arbitrary token strings.
// Goal: no panics, verified and unverified paths alike.
func FuzzRoles(f *testing.F) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		f.Fatal(err)
	}
	mgr, err := NewManager(Config{
		AccessTTL:     5 * time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "fuzz-test",
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub},
	})
	if err != nil {
		f.Fatal(err)
	}

	validToken, err := mgr.Issue(AccessClaims{UserID: "uid1", Roles: []string{"Admin"}})
	if err != nil {
		f.Fatal(err)
	}

	f.Add(validToken)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJFZERTQSJ9.eyJ1aWQiOiJ0ZXN0In0.invalid")
	f.Add("eyJhbGciOiJub25lIn0.eyJyb2xlIjpbMSwyXX0.")

	f.Fuzz(func(t *testing.T, input string) {
		_, _ = Roles(input, nil)
		roles, err := Roles(input, mgr)
		if err != nil && roles != nil {
			t.Fatal("roles must be nil on error")
		}
		_, _ = ExpiresAt(input)
	})
}
