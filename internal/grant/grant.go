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

// Package grant defines the authoritative record minted upon resource-owner
// consent (RFC 6749 Section 4) and referenced by every access/refresh token.
package grant

import (
	"time"

	"github.com/opentrusty/oauth2engine/internal/scope"
)

// Value is a single entry of a Grant's extension bag. Public values may be
// serialized into a client-readable token; private values never leave the
// server.
type Value struct {
	Public  bool
	Content string
	HasData bool
}

// PublicValue builds a server-visible-and-client-visible extension value.
func PublicValue(content string) Value {
	return Value{Public: true, Content: content, HasData: content != ""}
}

// PrivateValue builds a server-only extension value.
func PrivateValue(content string) Value {
	return Value{Public: false, Content: content, HasData: content != ""}
}

// Extensions is the grant's map from extension identifier to tagged value.
type Extensions map[string]Value

// Clone returns a shallow copy safe to mutate independently of the original.
func (e Extensions) Clone() Extensions {
	out := make(Extensions, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Public returns only the extension entries tagged public, suitable for
// embedding into a client-visible or signed-assertion token.
func (e Extensions) Public() Extensions {
	out := make(Extensions)
	for k, v := range e {
		if v.Public {
			out[k] = v
		}
	}
	return out
}

// HasPrivate reports whether any entry is tagged private. Assertion-based
// issuers/authorizers must refuse to serialize a grant carrying private data.
func (e Extensions) HasPrivate() bool {
	for _, v := range e {
		if !v.Public {
			return true
		}
	}
	return false
}

// PreGrant is a consent-ready proposal: the negotiated (client, redirect,
// scope) tuple shown to the resource owner before a Grant is minted.
type PreGrant struct {
	ClientID    string
	RedirectURI string
	Scope       scope.Scope
}

// Grant is the authoritative tuple minted upon consent. Grants are immutable
// once created; a refresh produces a new Grant rather than mutating one.
type Grant struct {
	OwnerID     string
	ClientID    string
	RedirectURI string
	Scope       scope.Scope
	Until       time.Time
	Extensions  Extensions
}

// Expired reports whether the grant's validity window has passed as of now.
func (g Grant) Expired(now time.Time) bool {
	return now.After(g.Until)
}

// WithScope returns a copy of g narrowed (or widened) to newScope with its
// validity window set to until; the extension bag is cloned.
func (g Grant) WithScope(newScope scope.Scope, until time.Time) Grant {
	out := g
	out.Scope = newScope
	out.Until = until
	if g.Extensions != nil {
		out.Extensions = g.Extensions.Clone()
	}
	return out
}
