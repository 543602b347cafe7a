package auth

import (
	"testing"
	"time"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("pass123")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "" {
		t.Fatal("expected non-empty hash")
	}
	if !CheckPassword(hash, "pass123") {
		t.Fatal("CheckPassword should succeed for correct password")
	}
	if CheckPassword(hash, "wrong-pass") {
		t.Fatal("CheckPassword should fail for wrong password")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := SignToken("user-1", secret, time.Hour)
	if err != nil {
		t.Fatalf("SignToken failed: %v", err)
	}
	claims, err := ParseToken(token, secret)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("unexpected user id: %s", claims.UserID)
	}
	if _, err := ParseToken(token, "wrong-secret"); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
	if _, err := ParseToken("not.a.token", secret); err == nil {
		t.Fatal("expected parse error for garbage token")
	}
}

func TestTokenExpiry(t *testing.T) {
	secret := "test-secret"
	token, err := SignToken("user-1", secret, -time.Minute)
	if err != nil {
		t.Fatalf("SignToken failed: %v", err)
	}
	if _, err := ParseToken(token, secret); err == nil {
		t.Fatal("expected error for expired token")
	}
}
