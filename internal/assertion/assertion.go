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

// Package assertion implements the HMAC-signed token strategy shared by the
// authorizer and issuer: a grant is encoded, tagged with its domain
// ("code", "token" or "refresh") and a monotonic counter, then signed.
//
// The reference design calls for MsgPack-encoding the (counter, grant, tag)
// tuple and HMAC-SHA256-signing the result by hand. No MsgPack
// implementation is available in this codebase's dependency set, so the
// same construction is expressed as a signed JWT (HS256) whose claims carry
// the counter, tag and serialized grant — the verification properties
// (tamper-evidence, constant-time compare, domain-tag rejection) are
// identical; only the wire encoding differs.
package assertion

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/opentrusty/oauth2engine/internal/grant"
	"github.com/opentrusty/oauth2engine/internal/scope"
)

// Domain tags, matching the reference wire format exactly.
const (
	TagCode    = "code"
	TagToken   = "token"
	TagRefresh = "refresh"
)

// ErrWrongTag is returned when a token verifies but carries a different
// domain tag than the one requested for extraction.
var ErrWrongTag = errors.New("assertion: domain tag mismatch")

// ErrPrivateExtension is returned when a grant carries private extension
// data, which MUST NOT be embedded in an assertion token.
var ErrPrivateExtension = errors.New("assertion: grant carries private extension data")

// serdeGrant mirrors the reference SerdeGrant wire shape.
type serdeGrant struct {
	OwnerID            string            `json:"owner_id"`
	ClientID           string            `json:"client_id"`
	Scope              string            `json:"scope"`
	RedirectURI        string            `json:"redirect_uri"`
	UntilUnix          int64             `json:"until_unix"`
	PublicExtensions   map[string]string `json:"public_extensions,omitempty"`
}

type claims struct {
	Counter uint64     `json:"ctr"`
	Tag     string     `json:"tag"`
	Grant   serdeGrant `json:"grant"`
	jwt.RegisteredClaims
}

// Signer mints and verifies assertion tokens for one domain key. It is
// immutable HMAC state plus an atomic counter, safe for concurrent use.
type Signer struct {
	key     []byte
	counter atomic.Uint64
}

// NewSigner builds a Signer around key. The counter starts at zero.
func NewSigner(key []byte) *Signer {
	return &Signer{key: key}
}

// NextCounter returns the next monotonic counter value, erroring on wrap.
func (s *Signer) NextCounter() (uint64, error) {
	v := s.counter.Add(1)
	if v == 0 {
		return 0, ErrCounterWrap
	}
	return v, nil
}

// ErrCounterWrap is returned when the u64 usage counter would wrap.
var ErrCounterWrap = errors.New("assertion: usage counter wrapped")

// GenerateTagged signs g under tag with the next counter value.
func (s *Signer) GenerateTagged(tag string, g grant.Grant) (string, error) {
	if g.Extensions.HasPrivate() {
		return "", ErrPrivateExtension
	}
	counter, err := s.NextCounter()
	if err != nil {
		return "", err
	}
	return s.generate(tag, counter, g)
}

func (s *Signer) generate(tag string, counter uint64, g grant.Grant) (string, error) {
	c := claims{
		Counter: counter,
		Tag:     tag,
		Grant: serdeGrant{
			OwnerID:          g.OwnerID,
			ClientID:         g.ClientID,
			Scope:            g.Scope.String(),
			RedirectURI:      g.RedirectURI,
			UntilUnix:        g.Until.Unix(),
			PublicExtensions: publicExtensionStrings(g.Extensions),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.key)
}

func publicExtensionStrings(ext grant.Extensions) map[string]string {
	if len(ext) == 0 {
		return nil
	}
	out := make(map[string]string, len(ext))
	for k, v := range ext.Public() {
		out[k] = v.Content
	}
	return out
}

// Extract verifies token, requiring its domain tag to equal wantTag, and
// returns the counter and reconstructed grant.
func (s *Signer) Extract(wantTag, token string) (uint64, grant.Grant, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("assertion: unexpected signing method %v", t.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil || !parsed.Valid {
		return 0, grant.Grant{}, fmt.Errorf("assertion: invalid token: %w", err)
	}
	if c.Tag != wantTag {
		return 0, grant.Grant{}, ErrWrongTag
	}

	sc, err := scope.Parse(c.Grant.Scope)
	if err != nil {
		return 0, grant.Grant{}, fmt.Errorf("assertion: invalid embedded scope: %w", err)
	}

	g := grant.Grant{
		OwnerID:     c.Grant.OwnerID,
		ClientID:    c.Grant.ClientID,
		RedirectURI: c.Grant.RedirectURI,
		Scope:       sc,
		Until:       time.Unix(c.Grant.UntilUnix, 0).UTC(),
	}
	if len(c.Grant.PublicExtensions) > 0 {
		g.Extensions = make(grant.Extensions, len(c.Grant.PublicExtensions))
		for k, v := range c.Grant.PublicExtensions {
			g.Extensions[k] = grant.PublicValue(v)
		}
	}
	return c.Counter, g, nil
}
