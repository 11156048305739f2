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

package http

import (
	"context"

	"github.com/opentrusty/oauth2engine/internal/grant"
)

type contextKey string

const grantKey contextKey = "grant"

// withGrant attaches the grant a ResourceFlow resolved to the context
// of a protected-resource request.
func withGrant(ctx context.Context, g *grant.Grant) context.Context {
	return context.WithValue(ctx, grantKey, g)
}

// GetGrant retrieves the grant RequireScope resolved for the current
// request.
func GetGrant(ctx context.Context) (*grant.Grant, bool) {
	g, ok := ctx.Value(grantKey).(*grant.Grant)
	return g, ok
}
