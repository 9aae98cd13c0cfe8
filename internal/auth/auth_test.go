package auth

import (
	"testing"

	"gwi.com/chat-agent/internal/config"
)

func TestJWTRoundTrip(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"
	t.Cleanup(func() { config.AppConfig.JWTSecret = "" })

	token, err := GenerateJWT("alice")
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	sub, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT failed: %v", err)
	}
	if sub != "alice" {
		t.Fatalf("subject = %q, want alice", sub)
	}
}

func TestValidateJWTRejectsForeignSecret(t *testing.T) {
	config.AppConfig.JWTSecret = "one"
	token, err := GenerateJWT("alice")
	if err != nil {
		t.Fatalf("GenerateJWT failed: %v", err)
	}

	config.AppConfig.JWTSecret = "two"
	t.Cleanup(func() { config.AppConfig.JWTSecret = "" })

	if _, err := ValidateJWT(token); err == nil {
		t.Fatal("expected validation error with a different secret")
	}
}

func TestGenerateJWTWithoutSecret(t *testing.T) {
	config.AppConfig.JWTSecret = ""
	if _, err := GenerateJWT("alice"); err == nil {
		t.Fatal("expected error without a secret")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if !CheckPasswordHash("s3cret", hash) {
		t.Error("expected password to match its hash")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Error("expected wrong password to be rejected")
	}
}
