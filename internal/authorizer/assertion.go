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
	"errors"
	"sync"

	"github.com/opentrusty/oauth2engine/internal/assertion"
	"github.com/opentrusty/oauth2engine/internal/grant"
)

// AssertionAuthorizer issues HMAC-signed assertion codes rather than
// keying an in-memory map. One-shot redemption is enforced by a side table
// of consumed counters: without it this would not conform to the
// one-shot invariant.
type AssertionAuthorizer struct {
	signer *assertion.Signer

	mu       sync.Mutex
	consumed map[uint64]struct{}
}

// NewAssertionAuthorizer builds an AssertionAuthorizer signing with key.
func NewAssertionAuthorizer(key []byte) *AssertionAuthorizer {
	return &AssertionAuthorizer{
		signer:   assertion.NewSigner(key),
		consumed: make(map[uint64]struct{}),
	}
}

func (a *AssertionAuthorizer) Authorize(g grant.Grant) (string, error) {
	code, err := a.signer.GenerateTagged(assertion.TagCode, g)
	if errors.Is(err, assertion.ErrCounterWrap) {
		return "", ErrCounterWrap
	}
	return code, err
}

func (a *AssertionAuthorizer) Extract(code string) (*grant.Grant, error) {
	counter, g, err := a.signer.Extract(assertion.TagCode, code)
	if err != nil {
		return nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, already := a.consumed[counter]; already {
		return nil, nil
	}
	a.consumed[counter] = struct{}{}
	return &g, nil
}
