package auth

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestVerifyRoundTrip(t *testing.T) {
	v, err := NewVerifier("test-secret")
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	raw, err := v.Sign(Identity{UserID: "u1", Role: RoleAgent}, time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	id, err := v.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.UserID != "u1" {
		t.Errorf("UserID = %q, want %q", id.UserID, "u1")
	}
	if id.Role != RoleAgent {
		t.Errorf("Role = %q, want %q", id.Role, RoleAgent)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewVerifier("secret-a")
	verifier, _ := NewVerifier("secret-b")

	raw, err := issuer.Sign(Identity{UserID: "u1", Role: RoleAdmin}, time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if _, err := verifier.Verify(raw); err == nil {
		t.Fatal("Verify() expected error for wrong secret, got nil")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	v, _ := NewVerifier("test-secret")

	raw, err := v.Sign(Identity{UserID: "u1", Role: RoleUser}, -time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if _, err := v.Verify(raw); err == nil {
		t.Fatal("Verify() expected error for expired token, got nil")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	v, _ := NewVerifier("test-secret")
	if _, err := v.Verify("not-a-token"); err == nil {
		t.Fatal("Verify() expected error for garbage token, got nil")
	}
}

func TestVerifyDefaultsRole(t *testing.T) {
	v, _ := NewVerifier("test-secret")
	raw, _ := v.Sign(Identity{UserID: "u1"}, time.Minute)

	id, err := v.Verify(raw)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Role != RoleUser {
		t.Errorf("Role = %q, want default %q", id.Role, RoleUser)
	}
}

func TestFromRequestHeader(t *testing.T) {
	v, _ := NewVerifier("test-secret")
	raw, _ := v.Sign(Identity{UserID: "u1", Role: RoleAdmin}, time.Minute)

	r := httptest.NewRequest("GET", "/api/v1/rtc/ws", nil)
	r.Header.Set("Authorization", "Bearer "+raw)

	id, err := v.FromRequest(r)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}
	if id.UserID != "u1" {
		t.Errorf("UserID = %q, want %q", id.UserID, "u1")
	}
}

func TestFromRequestQueryParam(t *testing.T) {
	v, _ := NewVerifier("test-secret")
	raw, _ := v.Sign(Identity{UserID: "u2", Role: RoleAgent}, time.Minute)

	r := httptest.NewRequest("GET", "/api/v1/rtc/ws?token="+raw, nil)

	id, err := v.FromRequest(r)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}
	if id.UserID != "u2" {
		t.Errorf("UserID = %q, want %q", id.UserID, "u2")
	}
}

func TestFromRequestMissingCredential(t *testing.T) {
	v, _ := NewVerifier("test-secret")
	r := httptest.NewRequest("GET", "/api/v1/rtc/ws", nil)

	if _, err := v.FromRequest(r); err == nil {
		t.Fatal("FromRequest() expected error with no credential, got nil")
	}
}
