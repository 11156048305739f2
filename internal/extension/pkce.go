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

package extension

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"

	"github.com/opentrusty/oauth2engine/internal/grant"
)

// PKCEIdentifier is the extension bag key PKCE stores its challenge under.
const PKCEIdentifier = "pkce"

// ErrPKCERequired is returned when PKCE is configured required and the
// authorization request carried no code_challenge.
var ErrPKCERequired = errors.New("pkce: code_challenge required")

// ErrPKCEMismatch is returned when the token-phase code_verifier does not
// match the captured code_challenge.
var ErrPKCEMismatch = errors.New("pkce: code_verifier does not match code_challenge")

// ErrPKCEMethodDisabled is returned for a `plain` challenge when plain is
// not explicitly enabled.
var ErrPKCEMethodDisabled = errors.New("pkce: plain method not enabled")

// ErrPKCEUnexpectedVerifier is returned when a code_verifier is presented
// at token time but no code_challenge was captured at authorization time.
var ErrPKCEUnexpectedVerifier = errors.New("pkce: code_verifier present without code_challenge")

// PKCE implements both extension hooks for Proof Key for Code Exchange
// (RFC 7636). Required controls whether absence of a challenge fails
// authorization; AllowPlain controls whether the `plain` method is
// accepted (disabled by default).
type PKCE struct {
	Required  bool
	AllowPlain bool
}

// NewPKCE builds a PKCE extension. Pass required=true to reject
// authorization requests that omit code_challenge.
func NewPKCE(required bool) *PKCE {
	return &PKCE{Required: required}
}

func (p *PKCE) Identifier() string { return PKCEIdentifier }

// encodeChallenge builds the wire format stored in the grant's extension bag
// between the authorization and token phases: "<method>:<challenge>".
func encodeChallenge(method, challenge string) string {
	return method + ":" + challenge
}

func (p *PKCE) ExtendAuthorization(params Params) (grant.Value, error) {
	challenge, haveChallenge := params.Get("code_challenge")
	method, haveMethod := params.Get("code_challenge_method")
	if !haveMethod {
		method = "plain"
	}

	if !haveChallenge {
		if p.Required {
			return grant.Value{}, ErrPKCERequired
		}
		return grant.Value{}, nil
	}

	if method == "plain" && !p.AllowPlain {
		return grant.Value{}, ErrPKCEMethodDisabled
	}
	if method != "plain" && method != "S256" {
		return grant.Value{}, errors.New("pkce: unsupported code_challenge_method")
	}

	// The challenge is public: it is not secret, only the verifier is.
	return grant.PublicValue(encodeChallenge(method, challenge)), nil
}

func (p *PKCE) ExtendAccessToken(params Params, stored grant.Value, storedPresent bool) (grant.Value, error) {
	verifier, haveVerifier := params.Get("code_verifier")

	if !storedPresent || !stored.HasData {
		if haveVerifier {
			return grant.Value{}, ErrPKCEUnexpectedVerifier
		}
		return grant.Value{}, nil
	}

	if !haveVerifier {
		return grant.Value{}, ErrPKCERequired
	}

	method, challenge, err := splitChallenge(stored.Content)
	if err != nil {
		return grant.Value{}, err
	}

	var computed string
	switch method {
	case "plain":
		computed = verifier
	case "S256":
		sum := sha256.Sum256([]byte(verifier))
		computed = base64.RawURLEncoding.EncodeToString(sum[:])
	default:
		return grant.Value{}, errors.New("pkce: unsupported code_challenge_method")
	}

	if subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) != 1 {
		return grant.Value{}, ErrPKCEMismatch
	}
	return grant.Value{}, nil
}

func splitChallenge(encoded string) (method, challenge string, err error) {
	for i := 0; i < len(encoded); i++ {
		if encoded[i] == ':' {
			return encoded[:i], encoded[i+1:], nil
		}
	}
	return "", "", errors.New("pkce: malformed stored challenge")
}
