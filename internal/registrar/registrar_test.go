package registrar

import (
	"context"
	"testing"

	"github.com/opentrusty/oauth2engine/internal/scope"
)

func newTestRegistrar() (*Registrar, *MemoryBackend) {
	backend := NewMemoryBackend()
	backend.Register(Client{
		ClientID:           "LocalClient",
		DefaultRedirectURI: "http://localhost:8021/endpoint",
		RedirectMode:       RedirectExact,
		DefaultScope:       scope.MustParse("default"),
		Kind:                Public,
	})
	policy := NewPBKDF2Policy(1 << 4) // cheap iterations for test speed
	confSecret, _ := policy.Store("ConfClient", "s3cret")
	backend.Register(Client{
		ClientID:           "ConfClient",
		DefaultRedirectURI: "https://example.com/cb",
		RedirectMode:       RedirectSemantic,
		DefaultScope:       scope.MustParse("read write"),
		Kind:                Confidential,
		HashedSecret:        confSecret,
	})
	return New(backend, policy), backend
}

func TestBindDefaultRedirect(t *testing.T) {
	r, _ := newTestRegistrar()
	bound, err := r.Bind(context.Background(), "LocalClient", "")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if bound.RedirectURI != "http://localhost:8021/endpoint" {
		t.Errorf("unexpected redirect: %s", bound.RedirectURI)
	}
}

func TestBindExactModeRejectsTrailingSlash(t *testing.T) {
	r, _ := newTestRegistrar()
	_, err := r.Bind(context.Background(), "LocalClient", "http://localhost:8021/endpoint/")
	if err != ErrMismatchedRedirect {
		t.Fatalf("expected ErrMismatchedRedirect, got %v", err)
	}
}

func TestBindUnknownClientSilent(t *testing.T) {
	r, _ := newTestRegistrar()
	_, err := r.Bind(context.Background(), "Unknown", "")
	if err != ErrUnregistered {
		t.Fatalf("expected ErrUnregistered, got %v", err)
	}
}

func TestBindSemanticIgnoresFragment(t *testing.T) {
	r, _ := newTestRegistrar()
	backend := NewMemoryBackend()
	_ = backend
	bound, err := r.Bind(context.Background(), "ConfClient", "https://example.com/cb#ignored")
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if bound.RedirectURI == "" {
		t.Fatal("expected bound redirect")
	}
}

func TestNegotiateDefaultScope(t *testing.T) {
	r, _ := newTestRegistrar()
	bound, _ := r.Bind(context.Background(), "LocalClient", "")
	pg, err := r.Negotiate(bound, "")
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if !pg.Scope.Equal(scope.MustParse("default")) {
		t.Errorf("expected default scope, got %s", pg.Scope)
	}
}

func TestNegotiateNarrowsExcessiveScope(t *testing.T) {
	r, _ := newTestRegistrar()
	bound, _ := r.Bind(context.Background(), "ConfClient", "")
	pg, err := r.Negotiate(bound, "read write admin")
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if pg.Scope.Has("admin") {
		t.Error("negotiated scope must not widen beyond client default")
	}
	if !pg.Scope.Equal(scope.MustParse("read write")) {
		t.Errorf("unexpected negotiated scope: %s", pg.Scope)
	}
}

func TestCheckPublicClientRejectsPassphrase(t *testing.T) {
	r, _ := newTestRegistrar()
	if err := r.Check(context.Background(), "LocalClient", "anything", true); err == nil {
		t.Error("expected public client with passphrase to fail")
	}
	if err := r.Check(context.Background(), "LocalClient", "", false); err != nil {
		t.Errorf("expected public client without passphrase to succeed: %v", err)
	}
}

func TestCheckConfidentialClientVerifiesSecret(t *testing.T) {
	r, _ := newTestRegistrar()
	if err := r.Check(context.Background(), "ConfClient", "s3cret", true); err != nil {
		t.Errorf("expected correct secret to succeed: %v", err)
	}
	if err := r.Check(context.Background(), "ConfClient", "wrong", true); err == nil {
		t.Error("expected incorrect secret to fail")
	}
	if err := r.Check(context.Background(), "ConfClient", "", false); err == nil {
		t.Error("expected confidential client without passphrase to fail")
	}
}
