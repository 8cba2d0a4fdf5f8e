package security_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/nightshift/inventory-backend/pkg/config"
	"github.com/nightshift/inventory-backend/pkg/security"
)

var fastParams = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password", fastParams)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected hash encoding %q", hash)
	}

	ok, err := security.VerifyPassword("very-secure-password", hash)
	if err != nil || !ok {
		t.Fatalf("VerifyPassword failed for the correct password: ok=%v err=%v", ok, err)
	}
	ok, err = security.VerifyPassword("bogus-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword returned error for invalid password: %v", err)
	}
	if ok {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestVerifyPasswordBadHash(t *testing.T) {
	for _, encoded := range []string{"not-a-hash", "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5"} {
		if _, err := security.VerifyPassword("irrelevant", encoded); !errors.Is(err, security.ErrInvalidHash) {
			t.Fatalf("expected ErrInvalidHash for %q, got %v", encoded, err)
		}
	}
}

func TestNeedsRehash(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password", fastParams)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if security.NeedsRehash(hash, fastParams) {
		t.Fatal("hash made with current params should not need a rehash")
	}
	stronger := fastParams
	stronger.ArgonTime = 3
	if !security.NeedsRehash(hash, stronger) {
		t.Fatal("expected rehash when time cost increases")
	}
}

func TestCheckPasswordPolicy(t *testing.T) {
	if err := security.CheckPasswordPolicy("short"); !errors.Is(err, security.ErrWeakPassword) {
		t.Fatalf("expected weak password, got %v", err)
	}
	if err := security.CheckPasswordPolicy("long-enough"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerateTempPassword(t *testing.T) {
	first, err := security.GenerateTempPassword(12)
	if err != nil {
		t.Fatalf("GenerateTempPassword returned error: %v", err)
	}
	if len(first) != 12 {
		t.Fatalf("expected 12 characters, got %d", len(first))
	}
	second, _ := security.GenerateTempPassword(12)
	if first == second {
		t.Fatal("expected distinct temporary passwords")
	}
	if _, err := security.GenerateTempPassword(0); err == nil {
		t.Fatal("expected error for non-positive length")
	}
}
