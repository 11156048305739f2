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

package authorizer

import (
	"crypto/rand"
	"encoding/base64"
	"sync"

	"github.com/opentrusty/oauth2engine/internal/grant"
)

// RandomAuthorizer keys a 128-bit random code string to a Grant in an
// in-memory map. Extract is linearizable per code via a single mutex,
// satisfying the one-shot requirement for concurrent redemption races.
type RandomAuthorizer struct {
	mu    sync.Mutex
	codes map[string]grant.Grant
}

// NewRandomAuthorizer builds an empty RandomAuthorizer.
func NewRandomAuthorizer() *RandomAuthorizer {
	return &RandomAuthorizer{codes: make(map[string]grant.Grant)}
}

func (a *RandomAuthorizer) Authorize(g grant.Grant) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := base64.RawURLEncoding.EncodeToString(buf)

	a.mu.Lock()
	defer a.mu.Unlock()
	// Collisions are astronomically unlikely for 128 bits of entropy; a
	// retry loop would only mask a broken RNG.
	a.codes[code] = g
	return code, nil
}

func (a *RandomAuthorizer) Extract(code string) (*grant.Grant, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	g, ok := a.codes[code]
	if !ok {
		return nil, nil
	}
	delete(a.codes, code)
	return &g, nil
}
