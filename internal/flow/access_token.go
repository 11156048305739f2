// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opentrusty/oauth2engine/internal/endpoint"
	"github.com/opentrusty/oauth2engine/internal/grant"
	"github.com/opentrusty/oauth2engine/internal/issuer"
	"github.com/opentrusty/oauth2engine/internal/registrar"
)

// AccessTokenFlow implements the access-token request (spec §4.7).
type AccessTokenFlow struct {
	Endpoint *endpoint.Endpoint
}

type tokenSuccessBody struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope"`
}

func jsonError(status int, code, description, wwwAuth string) *JSONError {
	return &JSONError{Status: status, Code: code, Description: description, WWWAuthenticate: wwwAuth}
}

// Execute runs the authorization_code grant-type exchange.
func (f *AccessTokenFlow) Execute(ctx context.Context, req WebRequest) (*Response, error) {
	reg, err := f.Endpoint.RequireRegistrar()
	if err != nil {
		return nil, err
	}
	auth, err := f.Endpoint.RequireAuthorizer()
	if err != nil {
		return nil, err
	}
	iss, err := f.Endpoint.RequireIssuer()
	if err != nil {
		return nil, err
	}

	body, err := req.URLBody()
	if err != nil {
		return nil, jsonError(400, "invalid_request", "", "")
	}
	authHeader, haveAuthHeader := req.AuthHeader()

	creds, ok := resolveClientAuth(authHeader, haveAuthHeader, body, f.Endpoint.AllowBodyClientCredentials)
	if !ok {
		return nil, jsonError(400, "invalid_request", "exactly one client authentication source required", "")
	}

	if err := reg.Check(ctx, creds.ClientID, creds.Passphrase, creds.HavePassphrase); err != nil {
		return nil, jsonError(401, "invalid_client", "", "Basic")
	}

	grantType, _ := body.Get("grant_type")
	if grantType != "authorization_code" {
		return nil, jsonError(400, "unsupported_grant_type", "", "")
	}

	code, _ := body.Get("code")
	g, err := auth.Extract(code)
	if err != nil {
		return nil, &endpoint.PrimitiveError{Primitive: "authorizer", Cause: err}
	}
	if g == nil || g.Expired(f.Endpoint.Now()) {
		return nil, jsonError(400, "invalid_grant", "", "")
	}

	bound, err := reg.Bind(ctx, creds.ClientID, "")
	if err != nil {
		return nil, jsonError(400, "invalid_grant", "", "")
	}
	requestRedirect, _ := body.Get("redirect_uri")
	if g.ClientID != creds.ClientID || !registrar.RedirectMatches(bound.Client, g.RedirectURI, requestRedirect) {
		return nil, jsonError(400, "invalid_grant", "", "")
	}

	newExt, err := f.Endpoint.ExtensionsOrEmpty().RunAccessToken(body, g.Extensions)
	if err != nil {
		return nil, jsonError(400, "invalid_request", err.Error(), "")
	}

	finalGrant := grant.Grant{
		OwnerID:     g.OwnerID,
		ClientID:    g.ClientID,
		RedirectURI: g.RedirectURI,
		Scope:       g.Scope,
		Until:       f.Endpoint.Now().Add(f.Endpoint.AccessTokenLifetime()),
		Extensions:  newExt,
	}

	tok, err := iss.Issue(finalGrant)
	if err != nil {
		return nil, &endpoint.PrimitiveError{Primitive: "issuer", Cause: err}
	}

	return tokenSuccessResponse(tok, finalGrant, f.Endpoint.Now())
}

func tokenSuccessResponse(tok issuer.IssuedToken, g grant.Grant, now time.Time) (*Response, error) {
	body := tokenSuccessBody{
		AccessToken:  tok.Access,
		TokenType:    "bearer",
		ExpiresIn:    int64(tok.Until.Sub(now).Seconds()),
		RefreshToken: tok.Refresh,
		Scope:        g.Scope.String(),
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("flow: encode token response: %w", err)
	}
	return newResponse().OK().BodyJSON(string(encoded)), nil
}
