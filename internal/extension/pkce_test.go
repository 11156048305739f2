package extension

import (
	"testing"

	"github.com/opentrusty/oauth2engine/internal/grant"
)

func TestPKCES256HappyPath(t *testing.T) {
	p := NewPKCE(false)

	authParams := MapParams{
		"code_challenge":        "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		"code_challenge_method": "S256",
	}
	stored, err := p.ExtendAuthorization(authParams)
	if err != nil {
		t.Fatalf("ExtendAuthorization: %v", err)
	}

	tokenParams := MapParams{"code_verifier": "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"}
	if _, err := p.ExtendAccessToken(tokenParams, stored, true); err != nil {
		t.Fatalf("ExtendAccessToken: %v", err)
	}
}

func TestPKCES256WrongVerifierFails(t *testing.T) {
	p := NewPKCE(false)
	authParams := MapParams{
		"code_challenge":        "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		"code_challenge_method": "S256",
	}
	stored, err := p.ExtendAuthorization(authParams)
	if err != nil {
		t.Fatalf("ExtendAuthorization: %v", err)
	}

	tokenParams := MapParams{"code_verifier": "wrongVerifierWrongVerifierWrongVerifier1"}
	if _, err := p.ExtendAccessToken(tokenParams, stored, true); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestPKCERequiredRejectsAbsentChallenge(t *testing.T) {
	p := NewPKCE(true)
	if _, err := p.ExtendAuthorization(MapParams{}); err != ErrPKCERequired {
		t.Fatalf("expected ErrPKCERequired, got %v", err)
	}
}

func TestPKCEOptionalAllowsAbsentOnBothSides(t *testing.T) {
	p := NewPKCE(false)
	stored, err := p.ExtendAuthorization(MapParams{})
	if err != nil {
		t.Fatalf("ExtendAuthorization: %v", err)
	}
	if _, err := p.ExtendAccessToken(MapParams{}, stored, false); err != nil {
		t.Fatalf("ExtendAccessToken: %v", err)
	}
}

func TestPKCEVerifierWithoutChallengeRejected(t *testing.T) {
	p := NewPKCE(false)
	tokenParams := MapParams{"code_verifier": "unexpected"}
	if _, err := p.ExtendAccessToken(tokenParams, grant.Value{}, false); err != ErrPKCEUnexpectedVerifier {
		t.Fatalf("expected ErrPKCEUnexpectedVerifier, got %v", err)
	}
}

func TestPKCEPlainDisabledByDefault(t *testing.T) {
	p := NewPKCE(false)
	authParams := MapParams{"code_challenge": "abc", "code_challenge_method": "plain"}
	if _, err := p.ExtendAuthorization(authParams); err != ErrPKCEMethodDisabled {
		t.Fatalf("expected ErrPKCEMethodDisabled, got %v", err)
	}
}
