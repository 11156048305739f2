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

package issuer

import (
	"sync"

	"github.com/opentrusty/oauth2engine/internal/assertion"
	"github.com/opentrusty/oauth2engine/internal/grant"
)

// AssertionIssuer mints HMAC-signed assertion tokens: no token state is
// stored except a revocation side table, used to invalidate refresh tokens
// that have been rotated away or explicitly revoked.
type AssertionIssuer struct {
	signer *assertion.Signer

	mu      sync.Mutex
	revoked map[uint64]struct{}
}

// NewAssertionIssuer builds an AssertionIssuer signing with key.
func NewAssertionIssuer(key []byte) *AssertionIssuer {
	return &AssertionIssuer{
		signer:  assertion.NewSigner(key),
		revoked: make(map[uint64]struct{}),
	}
}

func (i *AssertionIssuer) Issue(g grant.Grant) (IssuedToken, error) {
	access, err := i.signer.GenerateTagged(assertion.TagToken, g)
	if err != nil {
		return IssuedToken{}, err
	}
	refresh, err := i.signer.GenerateTagged(assertion.TagRefresh, g)
	if err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{Access: access, Refresh: refresh, Until: g.Until, TokenType: "bearer"}, nil
}

func (i *AssertionIssuer) RecoverToken(access string) (*grant.Grant, error) {
	counter, g, err := i.signer.Extract(assertion.TagToken, access)
	if err != nil {
		return nil, nil
	}
	if i.isRevoked(counter) {
		return nil, nil
	}
	return &g, nil
}

func (i *AssertionIssuer) RecoverRefresh(refresh string) (*grant.Grant, error) {
	counter, g, err := i.signer.Extract(assertion.TagRefresh, refresh)
	if err != nil {
		return nil, nil
	}
	if i.isRevoked(counter) {
		return nil, nil
	}
	return &g, nil
}

func (i *AssertionIssuer) Refresh(oldRefresh string, newGrant grant.Grant) (IssuedToken, error) {
	counter, _, err := i.signer.Extract(assertion.TagRefresh, oldRefresh)
	if err != nil {
		return IssuedToken{}, err
	}
	i.revoke(counter)

	return i.Issue(newGrant)
}

// Revoke invalidates access token strings ahead of expiry.
func (i *AssertionIssuer) Revoke(token string, tag string) error {
	counter, _, err := i.signer.Extract(tag, token)
	if err != nil {
		return err
	}
	i.revoke(counter)
	return nil
}

func (i *AssertionIssuer) revoke(counter uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.revoked[counter] = struct{}{}
}

func (i *AssertionIssuer) isRevoked(counter uint64) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.revoked[counter]
	return ok
}
