package flow

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/opentrusty/oauth2engine/internal/authorizer"
	"github.com/opentrusty/oauth2engine/internal/endpoint"
	"github.com/opentrusty/oauth2engine/internal/extension"
	"github.com/opentrusty/oauth2engine/internal/issuer"
	"github.com/opentrusty/oauth2engine/internal/policy"
	"github.com/opentrusty/oauth2engine/internal/registrar"
	"github.com/opentrusty/oauth2engine/internal/scope"
	"github.com/opentrusty/oauth2engine/internal/solicitor"
)

func newTestEndpoint(t *testing.T) (*endpoint.Endpoint, *registrar.MemoryBackend) {
	t.Helper()
	backend := registrar.NewMemoryBackend()
	backend.Register(registrar.Client{
		ClientID:           "LocalClient",
		DefaultRedirectURI: "http://localhost:8021/endpoint",
		RedirectMode:       registrar.RedirectExact,
		DefaultScope:       scope.MustParse("default"),
		Kind:                registrar.Public,
	})

	ep := &endpoint.Endpoint{
		Reg:        registrar.New(backend, nil),
		Authorizer: authorizer.NewRandomAuthorizer(),
		Issuer:     issuer.NewRandomIssuer(),
		Solicitor:  solicitor.AllowAll("user"),
		Extensions: extension.NewRegistry(),
		Realm:      "oauth2engine",
	}
	return ep, backend
}

func parseQuery(t *testing.T, raw string) map[string]string {
	t.Helper()
	values, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("ParseQuery: %v", err)
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		out[k] = v[0]
	}
	return out
}

func TestHappyPathCodeGrant(t *testing.T) {
	ep, _ := newTestEndpoint(t)
	ctx := context.Background()

	authFlow := &AuthorizationFlow{Endpoint: ep}
	resp, err := authFlow.Execute(ctx, mapRequest{query: map[string]string{
		"response_type": "code",
		"client_id":     "LocalClient",
		"redirect_uri":  "http://localhost:8021/endpoint",
	}})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if resp.Status != 302 {
		t.Fatalf("expected 302, got %d", resp.Status)
	}
	loc, err := url.Parse(resp.Location)
	if err != nil {
		t.Fatalf("parse redirect location: %v", err)
	}
	code := loc.Query().Get("code")
	if code == "" {
		t.Fatal("expected code in redirect")
	}

	tokenFlow := &AccessTokenFlow{Endpoint: ep}
	tokenResp, err := tokenFlow.Execute(ctx, mapRequest{body: map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"client_id":    "LocalClient",
		"redirect_uri": "http://localhost:8021/endpoint",
	}})
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tokenResp.Status != 200 {
		t.Fatalf("expected 200, got %d: %s", tokenResp.Status, tokenResp.Body)
	}
	if !strings.Contains(tokenResp.Body, `"token_type":"bearer"`) {
		t.Fatalf("unexpected token body: %s", tokenResp.Body)
	}

	access := extractJSONField(t, tokenResp.Body, "access_token")

	resourceFlow := &ResourceFlow{Endpoint: ep}
	g, err := resourceFlow.Execute(ctx, mapRequest{authHeader: "Bearer " + access, haveAuth: true})
	if err != nil {
		t.Fatalf("resource: %v", err)
	}
	if g.ClientID != "LocalClient" {
		t.Fatalf("unexpected grant: %+v", g)
	}
}

func extractJSONField(t *testing.T, body, field string) string {
	t.Helper()
	marker := `"` + field + `":"`
	idx := strings.Index(body, marker)
	if idx < 0 {
		t.Fatalf("field %q not found in %s", field, body)
	}
	rest := body[idx+len(marker):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		t.Fatalf("malformed field %q in %s", field, body)
	}
	return rest[:end]
}

func TestUnknownClientSilentDenial(t *testing.T) {
	ep, _ := newTestEndpoint(t)
	authFlow := &AuthorizationFlow{Endpoint: ep}
	_, err := authFlow.Execute(context.Background(), mapRequest{query: map[string]string{
		"response_type": "code",
		"client_id":     "Unknown",
	}})
	if _, ok := err.(*SilentDenial); !ok {
		t.Fatalf("expected SilentDenial, got %v (%T)", err, err)
	}
}

func TestMismatchedRedirectExactModeSilentDenial(t *testing.T) {
	ep, _ := newTestEndpoint(t)
	authFlow := &AuthorizationFlow{Endpoint: ep}
	_, err := authFlow.Execute(context.Background(), mapRequest{query: map[string]string{
		"response_type": "code",
		"client_id":     "LocalClient",
		"redirect_uri":  "http://localhost:8021/endpoint/",
	}})
	if _, ok := err.(*SilentDenial); !ok {
		t.Fatalf("expected SilentDenial, got %v (%T)", err, err)
	}
}

func TestExpiredCodeYieldsInvalidGrant(t *testing.T) {
	ep, _ := newTestEndpoint(t)
	now := time.Now().UTC()
	ep.Clock = func() time.Time { return now }
	ctx := context.Background()

	authFlow := &AuthorizationFlow{Endpoint: ep}
	resp, err := authFlow.Execute(ctx, mapRequest{query: map[string]string{
		"response_type": "code",
		"client_id":     "LocalClient",
		"redirect_uri":  "http://localhost:8021/endpoint",
	}})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	loc, _ := url.Parse(resp.Location)
	code := loc.Query().Get("code")

	ep.Clock = func() time.Time { return now.Add(11 * time.Minute) }

	tokenFlow := &AccessTokenFlow{Endpoint: ep}
	_, err = tokenFlow.Execute(ctx, mapRequest{body: map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"client_id":    "LocalClient",
		"redirect_uri": "http://localhost:8021/endpoint",
	}})
	jsonErr, ok := err.(*JSONError)
	if !ok {
		t.Fatalf("expected JSONError, got %v (%T)", err, err)
	}
	if jsonErr.Code != "invalid_grant" || jsonErr.Status != 400 {
		t.Fatalf("unexpected error: %+v", jsonErr)
	}
}

func TestPKCES256EndToEnd(t *testing.T) {
	ep, _ := newTestEndpoint(t)
	ep.Extensions = extension.NewRegistry()
	pkce := extension.NewPKCE(false)
	ep.Extensions.AddAuthorization(pkce)
	ep.Extensions.AddAccessToken(pkce)
	ctx := context.Background()

	authFlow := &AuthorizationFlow{Endpoint: ep}
	resp, err := authFlow.Execute(ctx, mapRequest{query: map[string]string{
		"response_type":         "code",
		"client_id":             "LocalClient",
		"redirect_uri":          "http://localhost:8021/endpoint",
		"code_challenge":        "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		"code_challenge_method": "S256",
	}})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	loc, _ := url.Parse(resp.Location)
	code := loc.Query().Get("code")

	tokenFlow := &AccessTokenFlow{Endpoint: ep}
	_, err = tokenFlow.Execute(ctx, mapRequest{body: map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"client_id":    "LocalClient",
		"redirect_uri": "http://localhost:8021/endpoint",
		"code_verifier": "wrongVerifierThatWillNeverMatchTheChallenge1",
	}})
	if jsonErr, ok := err.(*JSONError); !ok || jsonErr.Code != "invalid_request" {
		t.Fatalf("expected invalid_request for wrong verifier, got %v", err)
	}

	resp2, err := authFlow.Execute(ctx, mapRequest{query: map[string]string{
		"response_type":         "code",
		"client_id":             "LocalClient",
		"redirect_uri":          "http://localhost:8021/endpoint",
		"code_challenge":        "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		"code_challenge_method": "S256",
	}})
	if err != nil {
		t.Fatalf("authorize (2nd): %v", err)
	}
	loc2, _ := url.Parse(resp2.Location)
	code2 := loc2.Query().Get("code")

	tokenResp, err := tokenFlow.Execute(ctx, mapRequest{body: map[string]string{
		"grant_type":    "authorization_code",
		"code":          code2,
		"client_id":     "LocalClient",
		"redirect_uri":  "http://localhost:8021/endpoint",
		"code_verifier": "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk",
	}})
	if err != nil {
		t.Fatalf("token with correct verifier: %v", err)
	}
	if tokenResp.Status != 200 {
		t.Fatalf("expected 200, got %d", tokenResp.Status)
	}
}

func TestInsufficientScopeForbidden(t *testing.T) {
	ep, backend := newTestEndpoint(t)
	backend.Register(registrar.Client{
		ClientID:           "ScopedClient",
		DefaultRedirectURI: "http://localhost:9000/cb",
		RedirectMode:       registrar.RedirectExact,
		DefaultScope:       scope.MustParse("read"),
		Kind:                registrar.Public,
	})
	ep.ScopePolicy = policy.Static{scope.MustParse("read write")}
	ctx := context.Background()

	authFlow := &AuthorizationFlow{Endpoint: ep}
	resp, err := authFlow.Execute(ctx, mapRequest{query: map[string]string{
		"response_type": "code",
		"client_id":     "ScopedClient",
		"redirect_uri":  "http://localhost:9000/cb",
	}})
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	loc, _ := url.Parse(resp.Location)
	code := loc.Query().Get("code")

	tokenFlow := &AccessTokenFlow{Endpoint: ep}
	tokenResp, err := tokenFlow.Execute(ctx, mapRequest{body: map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"client_id":    "ScopedClient",
		"redirect_uri": "http://localhost:9000/cb",
	}})
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	access := extractJSONField(t, tokenResp.Body, "access_token")

	resourceFlow := &ResourceFlow{Endpoint: ep}
	_, err = resourceFlow.Execute(ctx, mapRequest{authHeader: "Bearer " + access, haveAuth: true})
	denial, ok := err.(*ResourceDenial)
	if !ok {
		t.Fatalf("expected ResourceDenial, got %v (%T)", err, err)
	}
	if denial.Status != 403 || denial.Code != "insufficient_scope" {
		t.Fatalf("unexpected denial: %+v", denial)
	}
	if !strings.Contains(denial.WWWAuthenticate(), `error="insufficient_scope"`) {
		t.Fatalf("unexpected WWW-Authenticate: %s", denial.WWWAuthenticate())
	}
}
