package auth

import (
	"context"
	"strings"
	"testing"
)

func TestIssueAndVerify(t *testing.T) {
	ctx := context.Background()
	keyring := NewKeyring(NewMemoryStore())

	credential, err := keyring.Issue(ctx, "bank-a")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !strings.Contains(credential, ".") {
		t.Fatalf("expected keyID.secret form, got %q", credential)
	}

	identity, err := keyring.Verify(ctx, credential)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity != "bank-a" {
		t.Fatalf("expected identity bank-a, got %q", identity)
	}
}

func TestVerifyRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	keyring := NewKeyring(NewMemoryStore())

	credential, err := keyring.Issue(ctx, "bank-a")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	keyID, _, _ := strings.Cut(credential, ".")

	cases := []string{
		"",
		"no-dot",
		keyID + ".",
		keyID + ".wrong-secret",
		"unknown-id.some-secret",
	}
	for _, bad := range cases {
		if _, err := keyring.Verify(ctx, bad); err != ErrInvalidKey {
			t.Fatalf("credential %q: expected ErrInvalidKey, got %v", bad, err)
		}
	}
}

func TestIssuedKeysAreDistinct(t *testing.T) {
	ctx := context.Background()
	keyring := NewKeyring(NewMemoryStore())

	first, err := keyring.Issue(ctx, "bank-a")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := keyring.Issue(ctx, "bank-a")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct credentials for repeated issuance")
	}

	for _, credential := range []string{first, second} {
		identity, err := keyring.Verify(ctx, credential)
		if err != nil || identity != "bank-a" {
			t.Fatalf("verify %q: identity=%q err=%v", credential, identity, err)
		}
	}
}
