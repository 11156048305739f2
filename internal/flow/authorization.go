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
	"errors"
	"net/url"

	"github.com/opentrusty/oauth2engine/internal/endpoint"
	"github.com/opentrusty/oauth2engine/internal/grant"
	"github.com/opentrusty/oauth2engine/internal/registrar"
	"github.com/opentrusty/oauth2engine/internal/solicitor"
)

// AuthorizationFlow implements the authorization-code request (spec §4.6).
type AuthorizationFlow struct {
	Endpoint *endpoint.Endpoint
}

// Pending carries the state accumulated through negotiation, handed to the
// Solicitor for a consent decision.
type Pending struct {
	PreGrant   grant.PreGrant
	State      string
	Extensions grant.Extensions
}

// Execute runs the full authorization-code algorithm: binds the client,
// negotiates scope, runs authorization-extend hooks, solicits consent, and
// produces the redirect (or error redirect) response.
func (f *AuthorizationFlow) Execute(ctx context.Context, req WebRequest) (*Response, error) {
	reg, err := f.Endpoint.RequireRegistrar()
	if err != nil {
		return nil, err
	}

	query, err := req.Query()
	if err != nil {
		return nil, &SilentDenial{Reason: "malformed query"}
	}

	clientID, haveClientID := query.Get("client_id")
	if !haveClientID || clientID == "" {
		return nil, &SilentDenial{Reason: "missing client_id"}
	}
	requestedRedirect, _ := query.Get("redirect_uri")

	bound, err := reg.Bind(ctx, clientID, requestedRedirect)
	if err != nil {
		switch {
		case errors.Is(err, registrar.ErrUnregistered), errors.Is(err, registrar.ErrMismatchedRedirect):
			return nil, &SilentDenial{Reason: "unknown client or mismatched redirect"}
		default:
			return nil, &endpoint.PrimitiveError{Primitive: "registrar", Cause: err}
		}
	}

	state, _ := query.Get("state")
	errRedirect := func(code, description string) *RedirectError {
		return &RedirectError{RedirectURI: bound.RedirectURI, Code: code, Description: description, State: state}
	}

	responseType, _ := query.Get("response_type")
	if responseType != "code" {
		return nil, errRedirect("unsupported_response_type", "")
	}

	requestedScope, _ := query.Get("scope")
	pg, err := reg.Negotiate(bound, requestedScope)
	if err != nil {
		return nil, errRedirect("invalid_scope", err.Error())
	}

	ext, err := f.Endpoint.ExtensionsOrEmpty().RunAuthorization(query)
	if err != nil {
		return nil, errRedirect("invalid_request", err.Error())
	}

	pending := Pending{PreGrant: pg, State: state, Extensions: ext}

	sol, err := f.Endpoint.RequireSolicitor()
	if err != nil {
		return nil, err
	}
	decision, err := sol.Solicit(ctx, pending.PreGrant)
	if err != nil {
		return nil, &endpoint.PrimitiveError{Primitive: "solicitor", Cause: err}
	}

	switch decision.Status {
	case solicitor.Denied:
		return nil, errRedirect("access_denied", "")
	case solicitor.Error:
		return nil, errRedirect("server_error", "")
	case solicitor.InProgress:
		resp := newResponse().OK()
		if s, ok := decision.Response.(string); ok {
			resp.BodyText(s)
		}
		return resp, nil
	case solicitor.Authorized:
		return f.finalize(pending, decision.OwnerID)
	default:
		return nil, errRedirect("server_error", "")
	}
}

func (f *AuthorizationFlow) finalize(pending Pending, ownerID string) (*Response, error) {
	auth, err := f.Endpoint.RequireAuthorizer()
	if err != nil {
		return nil, err
	}

	g := grant.Grant{
		OwnerID:     ownerID,
		ClientID:    pending.PreGrant.ClientID,
		RedirectURI: pending.PreGrant.RedirectURI,
		Scope:       pending.PreGrant.Scope,
		Until:       f.Endpoint.Now().Add(f.Endpoint.AuthorizationLifetime()),
		Extensions:  pending.Extensions,
	}

	code, err := auth.Authorize(g)
	if err != nil {
		return nil, &endpoint.PrimitiveError{Primitive: "authorizer", Cause: err}
	}

	loc, err := url.Parse(pending.PreGrant.RedirectURI)
	if err != nil {
		return nil, &SilentDenial{Reason: "malformed bound redirect uri"}
	}
	q := loc.Query()
	q.Set("code", code)
	if pending.State != "" {
		q.Set("state", pending.State)
	}
	loc.RawQuery = q.Encode()

	return newResponse().Redirect(loc.String()), nil
}
