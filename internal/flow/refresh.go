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

	"github.com/opentrusty/oauth2engine/internal/endpoint"
	"github.com/opentrusty/oauth2engine/internal/grant"
	"github.com/opentrusty/oauth2engine/internal/scope"
)

// RefreshFlow implements the refresh_token grant-type exchange (spec §4.8).
type RefreshFlow struct {
	Endpoint *endpoint.Endpoint
}

// Execute runs the refresh algorithm.
func (f *RefreshFlow) Execute(ctx context.Context, req WebRequest) (*Response, error) {
	reg, err := f.Endpoint.RequireRegistrar()
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
	if grantType != "refresh_token" {
		return nil, jsonError(400, "unsupported_grant_type", "", "")
	}

	refreshToken, _ := body.Get("refresh_token")
	recovered, err := iss.RecoverRefresh(refreshToken)
	if err != nil {
		return nil, &endpoint.PrimitiveError{Primitive: "issuer", Cause: err}
	}
	if recovered == nil {
		return nil, jsonError(400, "invalid_grant", "", "")
	}

	if recovered.ClientID != creds.ClientID {
		return nil, jsonError(400, "invalid_grant", "", "")
	}

	newScope := recovered.Scope
	if requestedScope, have := body.Get("scope"); have && requestedScope != "" {
		parsed, err := scope.Parse(requestedScope)
		if err != nil {
			return nil, jsonError(400, "invalid_scope", "", "")
		}
		if !parsed.LessEqual(recovered.Scope) {
			return nil, jsonError(400, "invalid_scope", "", "")
		}
		newScope = parsed
	}

	newGrant := grant.Grant{
		OwnerID:     recovered.OwnerID,
		ClientID:    recovered.ClientID,
		RedirectURI: recovered.RedirectURI,
		Scope:       newScope,
		Until:       f.Endpoint.Now().Add(f.Endpoint.AccessTokenLifetime()),
		Extensions:  recovered.Extensions,
	}

	tok, err := iss.Refresh(refreshToken, newGrant)
	if err != nil {
		return nil, &endpoint.PrimitiveError{Primitive: "issuer", Cause: err}
	}

	return tokenSuccessResponse(tok, newGrant, f.Endpoint.Now())
}
