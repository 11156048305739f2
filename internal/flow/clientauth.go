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

package flow

import (
	"encoding/base64"
	"strings"
)

// clientCredentials is the resolved (client_id, optional secret) pair for
// a token/refresh request. It does not record which channel (Basic header
// or body) the credentials arrived on.
type clientCredentials struct {
	ClientID       string
	Passphrase     string
	HavePassphrase bool
}

// resolveClientAuth implements the token-endpoint client-authentication
// source rule: exactly one of the HTTP Basic header or a body client_id
// MUST be present (public clients identify via body client_id with no
// secret). A body client_secret alongside client_id is only honored when
// the endpoint has opted in to body-carried confidential credentials
// (allowBody); simultaneous presence of Basic and a body client_id is
// rejected with invalid_request regardless of allowBody.
func resolveClientAuth(authHeader string, haveAuthHeader bool, body Params, allowBody bool) (clientCredentials, bool) {
	basicID, basicSecret, haveBasic := parseBasicAuth(authHeader, haveAuthHeader)
	bodyID, haveBodyID := body.Get("client_id")

	if haveBasic && haveBodyID {
		return clientCredentials{}, false
	}
	if haveBasic {
		return clientCredentials{ClientID: basicID, Passphrase: basicSecret, HavePassphrase: true}, true
	}
	if !haveBodyID {
		return clientCredentials{}, false
	}

	bodySecret, haveBodySecret := body.Get("client_secret")
	if haveBodySecret && !allowBody {
		return clientCredentials{}, false
	}
	return clientCredentials{ClientID: bodyID, Passphrase: bodySecret, HavePassphrase: haveBodySecret}, true
}

func parseBasicAuth(header string, have bool) (id, secret string, ok bool) {
	if !have {
		return "", "", false
	}
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return "", "", false
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
