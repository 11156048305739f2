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
	"strings"

	"github.com/opentrusty/oauth2engine/internal/endpoint"
	"github.com/opentrusty/oauth2engine/internal/grant"
	"github.com/opentrusty/oauth2engine/internal/policy"
)

// ResourceFlow implements bearer-token resource protection (spec §4.9).
type ResourceFlow struct {
	Endpoint *endpoint.Endpoint
}

// Execute validates the inbound Authorization header and returns the
// grant it resolves to, or a ResourceDenial describing the 401/403.
func (f *ResourceFlow) Execute(ctx context.Context, req WebRequest) (*grant.Grant, error) {
	iss, err := f.Endpoint.RequireIssuer()
	if err != nil {
		return nil, err
	}

	firstScope := ""
	if f.Endpoint.ScopePolicy != nil {
		firstScope = policy.FirstScope(f.Endpoint.ScopePolicy).String()
	}

	header, have := req.AuthHeader()
	if !have || !strings.HasPrefix(header, "Bearer ") {
		return nil, &ResourceDenial{Status: 401, Realm: f.Endpoint.Realm, Scope: firstScope}
	}
	token := strings.TrimPrefix(header, "Bearer ")

	g, err := iss.RecoverToken(token)
	if err != nil {
		return nil, &endpoint.PrimitiveError{Primitive: "issuer", Cause: err}
	}
	if g == nil || g.Expired(f.Endpoint.Now()) {
		return nil, &ResourceDenial{Status: 401, Code: "invalid_token", Realm: f.Endpoint.Realm, Scope: firstScope}
	}

	if f.Endpoint.ScopePolicy != nil && !policy.Allows(f.Endpoint.ScopePolicy, g.Scope) {
		return nil, &ResourceDenial{Status: 403, Code: "insufficient_scope", Realm: f.Endpoint.Realm, Scope: firstScope}
	}

	return g, nil
}
