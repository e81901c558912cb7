package application

import (
	"errors"
	"strings"
	"testing"
)

var weakHashParams = Argon2idParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := CreatePasswordHash("correct horse battery staple", weakHashParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash returned error: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Fatalf("unexpected hash prefix: %q", hash)
	}

	if err := VerifyPassword(hash, "correct horse battery staple"); err != nil {
		t.Fatalf("expected password to verify, got %v", err)
	}

	if err := VerifyPassword(hash, "wrong password"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong password, got %v", err)
	}
}

func TestPasswordHashesAreSalted(t *testing.T) {
	first, err := CreatePasswordHash("same password", weakHashParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash returned error: %v", err)
	}
	second, err := CreatePasswordHash("same password", weakHashParams)
	if err != nil {
		t.Fatalf("CreatePasswordHash returned error: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct digests for the same password")
	}
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"not argon2id":  "$bcrypt$whatever",
		"missing parts": "$argon2id$v=19$m=65536",
	}
	for name, hash := range cases {
		t.Run(name, func(t *testing.T) {
			if err := VerifyPassword(hash, "password"); !errors.Is(err, ErrInvalidPasswordHash) {
				t.Fatalf("expected ErrInvalidPasswordHash, got %v", err)
			}
		})
	}
}
