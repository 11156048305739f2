package authorizer

import (
	"testing"
	"time"

	"github.com/opentrusty/oauth2engine/internal/grant"
	"github.com/opentrusty/oauth2engine/internal/scope"
)

func testGrant() grant.Grant {
	return grant.Grant{
		OwnerID:     "user1",
		ClientID:    "LocalClient",
		RedirectURI: "http://localhost:8021/endpoint",
		Scope:       scope.MustParse("default"),
		Until:       time.Now().Add(10 * time.Minute).UTC(),
	}
}

func TestRandomAuthorizerOneShot(t *testing.T) {
	a := NewRandomAuthorizer()
	g := testGrant()

	code, err := a.Authorize(g)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}

	got, err := a.Extract(code)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got == nil || got.ClientID != g.ClientID {
		t.Fatalf("expected grant back, got %v", got)
	}

	second, err := a.Extract(code)
	if err != nil {
		t.Fatalf("Extract (second): %v", err)
	}
	if second != nil {
		t.Fatal("expected nil on second extraction of same code")
	}
}

func TestAssertionAuthorizerOneShot(t *testing.T) {
	a := NewAssertionAuthorizer([]byte("test-signing-key"))
	g := testGrant()

	code, err := a.Authorize(g)
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}

	got, err := a.Extract(code)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got == nil || got.ClientID != g.ClientID {
		t.Fatalf("expected grant back, got %v", got)
	}

	second, err := a.Extract(code)
	if err != nil {
		t.Fatalf("Extract (second): %v", err)
	}
	if second != nil {
		t.Fatal("expected nil on second extraction of same code")
	}
}

func TestAssertionAuthorizerRejectsPrivateExtension(t *testing.T) {
	a := NewAssertionAuthorizer([]byte("test-signing-key"))
	g := testGrant()
	g.Extensions = grant.Extensions{"secret": grant.PrivateValue("hidden")}

	if _, err := a.Authorize(g); err == nil {
		t.Fatal("expected error when grant carries private extension data")
	}
}

func TestAssertionAuthorizerRejectsWrongDomain(t *testing.T) {
	a := NewAssertionAuthorizer([]byte("test-signing-key"))
	g := testGrant()

	// A token signed for a different tag must not validate as a code.
	_, tok, err := signForTag(t, a, g)
	if err != nil {
		t.Fatalf("signForTag: %v", err)
	}
	if got, _ := a.Extract(tok); got != nil {
		t.Fatal("expected mismatched-domain token to be rejected")
	}
}

func signForTag(t *testing.T, a *AssertionAuthorizer, g grant.Grant) (uint64, string, error) {
	t.Helper()
	tok, err := a.signer.GenerateTagged("token", g)
	return 0, tok, err
}
