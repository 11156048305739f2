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
	"crypto/rand"
	"encoding/base64"
	"sync"

	"github.com/opentrusty/oauth2engine/internal/grant"
)

// RandomIssuer keys opaque random token strings to grants in in-memory
// maps. RefreshRotate controls whether Refresh rotates the refresh token.
type RandomIssuer struct {
	RefreshRotate bool

	mu       sync.Mutex
	access   map[string]grant.Grant
	refresh  map[string]grant.Grant
}

// NewRandomIssuer builds a RandomIssuer that rotates refresh tokens.
func NewRandomIssuer() *RandomIssuer {
	return &RandomIssuer{
		RefreshRotate: true,
		access:        make(map[string]grant.Grant),
		refresh:       make(map[string]grant.Grant),
	}
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (i *RandomIssuer) Issue(g grant.Grant) (IssuedToken, error) {
	access, err := randomToken()
	if err != nil {
		return IssuedToken{}, err
	}
	refresh, err := randomToken()
	if err != nil {
		return IssuedToken{}, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.access[access] = g
	i.refresh[refresh] = g
	return IssuedToken{Access: access, Refresh: refresh, Until: g.Until, TokenType: "bearer"}, nil
}

func (i *RandomIssuer) RecoverToken(access string) (*grant.Grant, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	g, ok := i.access[access]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (i *RandomIssuer) RecoverRefresh(refresh string) (*grant.Grant, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	g, ok := i.refresh[refresh]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (i *RandomIssuer) Refresh(oldRefresh string, newGrant grant.Grant) (IssuedToken, error) {
	access, err := randomToken()
	if err != nil {
		return IssuedToken{}, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	refreshTok := oldRefresh
	if i.RefreshRotate {
		newRefresh, err := randomToken()
		if err != nil {
			return IssuedToken{}, err
		}
		delete(i.refresh, oldRefresh)
		refreshTok = newRefresh
	}

	i.access[access] = newGrant
	i.refresh[refreshTok] = newGrant
	return IssuedToken{Access: access, Refresh: refreshTok, Until: newGrant.Until, TokenType: "bearer"}, nil
}
