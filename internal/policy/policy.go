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

// Package policy provides the per-request required-scope abstraction
// consulted by the resource-protection flow.
package policy

import "github.com/opentrusty/oauth2engine/internal/scope"

// Policy returns, for a given request, the list of scopes at least one of
// which a grant must cover to authorize access.
type Policy interface {
	Scopes() []scope.Scope
}

// Static is a Policy with a fixed set of acceptable scopes, independent of
// the inbound request.
type Static []scope.Scope

func (s Static) Scopes() []scope.Scope { return s }

// Allows reports whether grantScope satisfies p: there exists a policy
// scope P with P <= grantScope.
func Allows(p Policy, grantScope scope.Scope) bool {
	for _, required := range p.Scopes() {
		if grantScope.Allows(required) {
			return true
		}
	}
	return false
}

// FirstScope returns the first configured policy scope, used to populate
// the `scope` attribute of a 401 WWW-Authenticate challenge. Returns the
// zero Scope if the policy is empty.
func FirstScope(p Policy) scope.Scope {
	scopes := p.Scopes()
	if len(scopes) == 0 {
		return scope.Scope{}
	}
	return scopes[0]
}
