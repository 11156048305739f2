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

// Package endpoint defines the capability bundle the flow engines are
// generic over: every primitive a flow might need, plus the knobs the
// protocol leaves to the host.
package endpoint

import (
	"fmt"
	"time"

	"github.com/opentrusty/oauth2engine/internal/authorizer"
	"github.com/opentrusty/oauth2engine/internal/extension"
	"github.com/opentrusty/oauth2engine/internal/issuer"
	"github.com/opentrusty/oauth2engine/internal/policy"
	"github.com/opentrusty/oauth2engine/internal/registrar"
	"github.com/opentrusty/oauth2engine/internal/solicitor"
)

// PrimitiveError reports that a flow required a primitive the Endpoint
// does not provide, or that a provided primitive's backend call failed.
type PrimitiveError struct {
	Primitive string
	Cause     error
}

func (e *PrimitiveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("endpoint: primitive %q failed: %v", e.Primitive, e.Cause)
	}
	return fmt.Sprintf("endpoint: required primitive %q not configured", e.Primitive)
}

func (e *PrimitiveError) Unwrap() error { return e.Cause }

// Endpoint is the capability bundle every flow engine is constructed over.
// A flow checks for each primitive it requires when it executes and fails
// with a PrimitiveError if one is absent; nothing is checked when a flow
// value is constructed.
type Endpoint struct {
	Reg        *registrar.Registrar
	Authorizer authorizer.Authorizer
	Issuer     issuer.Issuer
	// ScopePolicy governs the resource-protection flow; nil disables it.
	ScopePolicy policy.Policy
	Solicitor   solicitor.Solicitor
	Extensions  *extension.Registry

	// CodeTTL is the validity window of a freshly minted authorization
	// code. Defaults to 10 minutes if zero. Read via
	// AuthorizationLifetime().
	CodeTTL time.Duration
	// TokenTTL is the validity window of a freshly minted access/refresh
	// grant. Defaults to 1 hour if zero. Read via AccessTokenLifetime().
	TokenTTL time.Duration
	// AllowBodyClientCredentials opts the host into accepting client_id
	// and client_secret as body form fields at the token endpoint, rather
	// than only HTTP Basic. Defaults off per the spec's required opt-in.
	AllowBodyClientCredentials bool
	// Realm is carried in WWW-Authenticate challenges on resource denial.
	Realm string

	// Clock returns the current time; injected for testability. Defaults
	// to time.Now if nil. All expiry comparisons use UTC.
	Clock func() time.Time
}

// Now returns the endpoint's current time, defaulting to the UTC wall
// clock when no Clock override was injected.
func (e *Endpoint) Now() time.Time {
	if e.Clock != nil {
		return e.Clock().UTC()
	}
	return time.Now().UTC()
}

// AuthorizationLifetime returns the configured authorization-code
// validity window, defaulting to 10 minutes.
func (e *Endpoint) AuthorizationLifetime() time.Duration {
	if e.CodeTTL == 0 {
		return 10 * time.Minute
	}
	return e.CodeTTL
}

// AccessTokenLifetime returns the configured access/refresh grant
// validity window, defaulting to 1 hour.
func (e *Endpoint) AccessTokenLifetime() time.Duration {
	if e.TokenTTL == 0 {
		return time.Hour
	}
	return e.TokenTTL
}

// RequireRegistrar returns the configured Registrar or a PrimitiveError.
func (e *Endpoint) RequireRegistrar() (*registrar.Registrar, error) {
	if e.Reg == nil {
		return nil, &PrimitiveError{Primitive: "registrar"}
	}
	return e.Reg, nil
}

// RequireAuthorizer returns the configured Authorizer or a PrimitiveError.
func (e *Endpoint) RequireAuthorizer() (authorizer.Authorizer, error) {
	if e.Authorizer == nil {
		return nil, &PrimitiveError{Primitive: "authorizer"}
	}
	return e.Authorizer, nil
}

// RequireIssuer returns the configured Issuer or a PrimitiveError.
func (e *Endpoint) RequireIssuer() (issuer.Issuer, error) {
	if e.Issuer == nil {
		return nil, &PrimitiveError{Primitive: "issuer"}
	}
	return e.Issuer, nil
}

// RequireSolicitor returns the configured Solicitor or a PrimitiveError.
func (e *Endpoint) RequireSolicitor() (solicitor.Solicitor, error) {
	if e.Solicitor == nil {
		return nil, &PrimitiveError{Primitive: "solicitor"}
	}
	return e.Solicitor, nil
}

// ExtensionsOrEmpty returns the configured extension Registry, or an empty
// one if none was configured.
func (e *Endpoint) ExtensionsOrEmpty() *extension.Registry {
	if e.Extensions == nil {
		return extension.NewRegistry()
	}
	return e.Extensions
}
