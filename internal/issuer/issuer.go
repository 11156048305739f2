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

// Package issuer mints access/refresh tokens, recovers a Grant from either,
// and rotates tokens on refresh.
package issuer

import (
	"time"

	"github.com/opentrusty/oauth2engine/internal/grant"
)

// IssuedToken is the result of a successful issuance.
type IssuedToken struct {
	Access       string
	Refresh      string // empty if no refresh token was produced
	Until        time.Time
	TokenType    string // always "bearer"
}

// Issuer mints and recovers access/refresh tokens.
type Issuer interface {
	// Issue mints access and, per policy, a refresh token for g.
	Issue(g grant.Grant) (IssuedToken, error)
	// RecoverToken resolves an access token string back to its grant.
	RecoverToken(access string) (*grant.Grant, error)
	// RecoverRefresh resolves a refresh token string back to its grant.
	RecoverRefresh(refresh string) (*grant.Grant, error)
	// Refresh issues a new access token for newGrant, optionally rotating
	// the refresh token; on rotation oldRefresh MUST be invalidated.
	Refresh(oldRefresh string, newGrant grant.Grant) (IssuedToken, error)
}
