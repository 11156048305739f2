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

// Package authorizer mints and one-shot-redeems authorization codes bound
// to a Grant.
package authorizer

import (
	"errors"

	"github.com/opentrusty/oauth2engine/internal/grant"
)

// ErrCounterWrap is returned by assertion-based authorizers when the
// monotonic usage counter would wrap past its u64 range.
var ErrCounterWrap = errors.New("authorizer: usage counter wrapped")

// Authorizer mints and one-shot-redeems authorization codes.
type Authorizer interface {
	// Authorize produces a code string unique across all live grants
	// managed by this authorizer.
	Authorize(g grant.Grant) (string, error)
	// Extract returns the grant bound to code exactly once; a second call
	// for the same code MUST return (nil, nil).
	Extract(code string) (*grant.Grant, error)
}
