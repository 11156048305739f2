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

// Package registrar resolves client_id to client record, validates redirect
// URIs, authenticates confidential clients, and negotiates effective scope.
package registrar

import (
	"context"
	"errors"
	"net/url"

	"github.com/opentrusty/oauth2engine/internal/grant"
	"github.com/opentrusty/oauth2engine/internal/scope"
)

// RedirectMode selects how a requested redirect URI is compared against a
// client's registered URIs.
type RedirectMode int

const (
	// RedirectExact requires byte-for-byte equality.
	RedirectExact RedirectMode = iota
	// RedirectSemantic requires URL-normalized equality: scheme, host, port,
	// path and query must match; fragment is ignored.
	RedirectSemantic
)

// Kind distinguishes public clients (no secret) from confidential ones
// (hold a one-way-hashed secret).
type Kind int

const (
	Public Kind = iota
	Confidential
)

// Client is a registered OAuth2 client record.
type Client struct {
	ClientID            string
	AdditionalRedirects []string
	DefaultRedirectURI  string
	RedirectMode        RedirectMode
	DefaultScope        scope.Scope
	Kind                Kind
	// HashedSecret is the PasswordPolicy-produced verifier for confidential
	// clients. Unused for public clients.
	HashedSecret []byte
}

// BoundClient is the result of a successful bind: the client together with
// the redirect URI the current request is bound to.
type BoundClient struct {
	Client      Client
	RedirectURI string
}

// Error kinds returned by Registrar operations, per the protocol's silent-
// denial requirement: callers MUST NOT leak which case occurred to the
// client.
var (
	ErrUnregistered       = errors.New("registrar: client not registered")
	ErrMismatchedRedirect = errors.New("registrar: redirect uri does not match registration")
	ErrUnauthorizedClient = errors.New("registrar: client not authorized for this grant type")
	ErrUnspecified        = errors.New("registrar: authentication failed")
	ErrPrimitive          = errors.New("registrar: backend unavailable")
)

// PasswordPolicy stores and verifies confidential-client secrets.
type PasswordPolicy interface {
	// Store derives the bytes to persist for a freshly set passphrase.
	Store(clientID, passphrase string) ([]byte, error)
	// Check verifies passphrase against the stored bytes in constant time.
	Check(clientID, passphrase string, stored []byte) error
}

// Backend is the storage abstraction a Registrar is built over. In-memory
// and Postgres-backed implementations both satisfy it.
type Backend interface {
	ClientByID(ctx context.Context, clientID string) (Client, error)
}

// Registrar implements bind/negotiate/check over a Backend and a
// PasswordPolicy.
type Registrar struct {
	backend Backend
	policy  PasswordPolicy
}

// New builds a Registrar. policy may be nil only if no confidential clients
// will ever be registered.
func New(backend Backend, policy PasswordPolicy) *Registrar {
	return &Registrar{backend: backend, policy: policy}
}

// Bind resolves client_id and validates requestedRedirect (if any) against
// the client's registered URIs, returning the bound redirect URI.
func (r *Registrar) Bind(ctx context.Context, clientID string, requestedRedirect string) (BoundClient, error) {
	c, err := r.backend.ClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrUnregistered) {
			return BoundClient{}, ErrUnregistered
		}
		return BoundClient{}, ErrPrimitive
	}

	if requestedRedirect == "" {
		return BoundClient{Client: c, RedirectURI: c.DefaultRedirectURI}, nil
	}

	if matchesAny(c, requestedRedirect) {
		return BoundClient{Client: c, RedirectURI: requestedRedirect}, nil
	}
	return BoundClient{}, ErrMismatchedRedirect
}

func matchesAny(c Client, candidate string) bool {
	all := append([]string{c.DefaultRedirectURI}, c.AdditionalRedirects...)
	for _, registered := range all {
		if matchesOne(c.RedirectMode, registered, candidate) {
			return true
		}
	}
	return false
}

func matchesOne(mode RedirectMode, registered, candidate string) bool {
	if mode == RedirectExact {
		return registered == candidate
	}
	return semanticEqual(registered, candidate)
}

// RedirectMatches reports whether requested equals granted under the
// client's configured matching mode. Used at token-exchange time to
// compare the request's redirect_uri against the one bound into the
// code's grant. An empty requested URI (no redirect_uri sent) is reported
// as a match.
func RedirectMatches(c Client, granted, requested string) bool {
	if requested == "" {
		return true
	}
	return matchesOne(c.RedirectMode, granted, requested)
}

// semanticEqual compares two URIs ignoring fragment, per RedirectSemantic.
func semanticEqual(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return ua.Scheme == ub.Scheme &&
		ua.Host == ub.Host &&
		ua.Path == ub.Path &&
		ua.Query().Encode() == ub.Query().Encode()
}

// Negotiate derives a PreGrant from a bound client and an optionally
// requested scope, refusing to widen scope beyond the client's default.
func (r *Registrar) Negotiate(bound BoundClient, requestedScope string) (grant.PreGrant, error) {
	if requestedScope == "" {
		return grant.PreGrant{
			ClientID:    bound.Client.ClientID,
			RedirectURI: bound.RedirectURI,
			Scope:       bound.Client.DefaultScope,
		}, nil
	}

	requested, err := scope.Parse(requestedScope)
	if err != nil {
		return grant.PreGrant{}, err
	}

	// Narrow rather than fail outright when the client asks for scope it is
	// not permitted; the registrar MAY intersect but must never widen.
	negotiated := requested.Intersect(bound.Client.DefaultScope)
	return grant.PreGrant{
		ClientID:    bound.Client.ClientID,
		RedirectURI: bound.RedirectURI,
		Scope:       negotiated,
	}, nil
}

// Check authenticates a client: public clients succeed iff no passphrase is
// supplied; confidential clients succeed iff the passphrase verifies.
func (r *Registrar) Check(ctx context.Context, clientID string, passphrase string, havePassphrase bool) error {
	c, err := r.backend.ClientByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrUnregistered) {
			return ErrUnspecified
		}
		return ErrPrimitive
	}

	switch c.Kind {
	case Public:
		if havePassphrase {
			return ErrUnspecified
		}
		return nil
	case Confidential:
		if !havePassphrase || r.policy == nil {
			return ErrUnspecified
		}
		if err := r.policy.Check(clientID, passphrase, c.HashedSecret); err != nil {
			return ErrUnspecified
		}
		return nil
	default:
		return ErrUnspecified
	}
}
