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

// Package solicitor obtains the resource-owner consent decision for a
// pending authorization request. It is an external collaborator: the
// protocol core never renders a consent page, it only consumes a decision.
package solicitor

import (
	"context"

	"github.com/opentrusty/oauth2engine/internal/grant"
)

// Status tags a Decision's variant.
type Status int

const (
	// InProgress means consent has not yet been obtained; Response carries
	// whatever the host should return to the client verbatim (typically a
	// rendered consent form).
	InProgress Status = iota
	// Authorized means the owner approved the PreGrant.
	Authorized
	// Denied means the owner rejected the PreGrant.
	Denied
	// Error means the solicitor itself failed.
	Error
)

// Decision is the tagged-union result of consulting a Solicitor.
type Decision struct {
	Status   Status
	OwnerID  string // set iff Status == Authorized
	Response any    // set iff Status == InProgress; host-defined response value
	Err      error  // set iff Status == Error
}

// Solicitor obtains a consent Decision for a pending PreGrant.
type Solicitor interface {
	Solicit(ctx context.Context, pg grant.PreGrant) (Decision, error)
}

// Func adapts a plain function to a Solicitor.
type Func func(ctx context.Context, pg grant.PreGrant) (Decision, error)

func (f Func) Solicit(ctx context.Context, pg grant.PreGrant) (Decision, error) {
	return f(ctx, pg)
}

// AllowAll is a trivial Solicitor that authorizes every request under a
// fixed owner ID. Useful for tests and demo servers with no real login.
func AllowAll(ownerID string) Solicitor {
	return Func(func(ctx context.Context, pg grant.PreGrant) (Decision, error) {
		return Decision{Status: Authorized, OwnerID: ownerID}, nil
	})
}
