package security

import (
	"strings"
	"testing"
)

func TestArgonHash(t *testing.T) {
	a := New()

	encoded, err := a.GenerateFromPassword("hunter2")
	if err != nil {
		t.Fatalf("hashing failed: %v", err)
	}

	if !strings.HasPrefix(encoded, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %s", encoded)
	}

	t.Run("verifies the right password", func(t *testing.T) {
		ok, err := a.VerifyPasswd("hunter2", encoded)
		if err != nil {
			t.Fatalf("verify failed: %v", err)
		}
		if !ok {
			t.Fatal("correct password rejected")
		}
	})

	t.Run("rejects the wrong password", func(t *testing.T) {
		ok, err := a.VerifyPasswd("hunter3", encoded)
		if err != nil {
			t.Fatalf("verify failed: %v", err)
		}
		if ok {
			t.Fatal("wrong password accepted")
		}
	})

	t.Run("rejects malformed hashes", func(t *testing.T) {
		if _, err := a.VerifyPasswd("hunter2", "$argon2id$broken"); err == nil {
			t.Fatal("expected an error for a malformed hash")
		}
	})

	t.Run("salts make hashes unique", func(t *testing.T) {
		other, err := a.GenerateFromPassword("hunter2")
		if err != nil {
			t.Fatalf("hashing failed: %v", err)
		}
		if other == encoded {
			t.Fatal("two hashes of the same password collided")
		}
	})
}
