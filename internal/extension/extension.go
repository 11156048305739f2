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

// Package extension implements the two pluggable hook points flows invoke
// at well-defined moments: authorization-extend and access-token-extend.
// PKCE (in pkce.go) is the canonical instance of both.
package extension

import "github.com/opentrusty/oauth2engine/internal/grant"

// Params is a read-only key-value view over request parameters, satisfied
// by both query strings and form bodies.
type Params interface {
	Get(key string) (string, bool)
}

// MapParams adapts a plain map to Params.
type MapParams map[string]string

func (m MapParams) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// AuthorizationExtension inspects authorization-request parameters and
// returns an extension value to store in the grant (zero value for "no
// opinion"), or fails the request.
type AuthorizationExtension interface {
	Identifier() string
	ExtendAuthorization(params Params) (grant.Value, error)
}

// AccessTokenExtension inspects access-token-request parameters together
// with the stored authorization-phase value for the same identifier, and
// returns an extension value to store in the issued grant, or fails.
type AccessTokenExtension interface {
	Identifier() string
	ExtendAccessToken(params Params, stored grant.Value, storedPresent bool) (grant.Value, error)
}

// Registry is the ordered set of extensions a flow runs. Modeled as two
// lists rather than a heterogeneous collection, per the component design:
// each entry names its identifier and its pure function.
type Registry struct {
	authorization []AuthorizationExtension
	accessToken   []AccessTokenExtension
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// AddAuthorization registers an authorization-phase extension.
func (r *Registry) AddAuthorization(e AuthorizationExtension) {
	r.authorization = append(r.authorization, e)
}

// AddAccessToken registers an access-token-phase extension.
func (r *Registry) AddAccessToken(e AccessTokenExtension) {
	r.accessToken = append(r.accessToken, e)
}

// RunAuthorization invokes every registered authorization extension, in
// registration order, against params, accumulating results into a fresh
// Extensions bag.
func (r *Registry) RunAuthorization(params Params) (grant.Extensions, error) {
	out := make(grant.Extensions, len(r.authorization))
	for _, e := range r.authorization {
		v, err := e.ExtendAuthorization(params)
		if err != nil {
			return nil, err
		}
		if v.HasData || v.Public {
			out[e.Identifier()] = v
		}
	}
	return out, nil
}

// RunAccessToken invokes every registered access-token extension, popping
// each one's stored authorization-phase value out of bag as it runs, and
// returns the surviving public values merged into the issued grant's
// extension bag.
func (r *Registry) RunAccessToken(params Params, bag grant.Extensions) (grant.Extensions, error) {
	out := bag.Public()
	for _, e := range r.accessToken {
		stored, present := bag[e.Identifier()]
		delete(out, e.Identifier())

		v, err := e.ExtendAccessToken(params, stored, present)
		if err != nil {
			return nil, err
		}
		if v.HasData || v.Public {
			out[e.Identifier()] = v
		}
	}
	return out, nil
}
