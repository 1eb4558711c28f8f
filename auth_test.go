package main

import (
	"strings"
	"testing"
)

func TestRegisterLoginFlow(t *testing.T) {
	db := testDB(t)
	auth := NewAuth(db)

	id, token, err := auth.Register("ana", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id == 0 || token == "" {
		t.Fatal("register should return an id and a token")
	}

	uid, usr, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if uid != id || usr != "ana" {
		t.Errorf("token claims mismatch: uid=%d usr=%q", uid, usr)
	}

	lid, ltoken, err := auth.Login("ana", "secret", "1.2.3.4")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if lid != id || ltoken == "" {
		t.Error("login should return the same account id and a fresh token")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db := testDB(t)
	auth := NewAuth(db)
	auth.Register("ana", "secret")

	if _, _, err := auth.Login("ana", "wrong", "1.2.3.4"); err == nil {
		t.Error("wrong password must fail")
	}
	if _, _, err := auth.Login("nobody", "secret", "1.2.3.4"); err == nil {
		t.Error("unknown username must fail")
	}
}

func TestRegisterValidation(t *testing.T) {
	db := testDB(t)
	auth := NewAuth(db)

	if _, _, err := auth.Register("x", "secret"); err == nil {
		t.Error("too-short username must be rejected")
	}
	if _, _, err := auth.Register(strings.Repeat("x", 20), "secret"); err == nil {
		t.Error("too-long username must be rejected")
	}
	if _, _, err := auth.Register("ana", "abc"); err == nil {
		t.Error("too-short password must be rejected")
	}

	auth.Register("ana", "secret")
	if _, _, err := auth.Register("ana", "other"); err == nil {
		t.Error("duplicate username must be rejected")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	auth := NewAuth(nil)

	if _, _, err := auth.ValidateToken("not-a-token"); err == nil {
		t.Error("malformed token must be rejected")
	}

	// A token signed under a different secret must not validate
	other := NewAuth(nil)
	tok, err := other.generateToken(7, "eve")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := auth.ValidateToken(tok); err == nil {
		t.Error("token from a different secret must be rejected")
	}
}

func TestLoginRateLimit(t *testing.T) {
	db := testDB(t)
	auth := NewAuth(db)
	auth.Register("ana", "secret")

	for i := 0; i < maxLoginAttempts; i++ {
		auth.Login("ana", "wrong", "9.9.9.9")
	}
	if _, _, err := auth.Login("ana", "secret", "9.9.9.9"); err == nil {
		t.Error("attempts over the window limit must be refused")
	}
	// Other IPs are unaffected
	if _, _, err := auth.Login("ana", "secret", "8.8.8.8"); err != nil {
		t.Errorf("rate limit must be per-ip: %v", err)
	}
}

func TestSecretPersistedAcrossRestarts(t *testing.T) {
	db := testDB(t)

	a1 := NewAuth(db)
	_, token, err := a1.Register("ana", "secret")
	if err != nil {
		t.Fatal(err)
	}

	// Same database, fresh process: old tokens stay valid
	a2 := NewAuth(db)
	if _, _, err := a2.ValidateToken(token); err != nil {
		t.Errorf("token should survive a restart with the same store: %v", err)
	}
}
