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
	"encoding/json"
	"net/url"
	"strings"
)

// SilentDenial marks a request so malformed, or so plausibly malicious
// (unknown client, mismatched redirect), that no response body is safe to
// return. The host should answer with a generic 400 or 404 and nothing
// else.
type SilentDenial struct {
	Reason string
}

func (e *SilentDenial) Error() string { return "flow: silent denial: " + e.Reason }

// RedirectError is a post-binding authorization failure reported to the
// client via redirect with an RFC 6749 Section 4.1.2.1 error code. State is
// preserved verbatim.
type RedirectError struct {
	RedirectURI string
	Code        string
	Description string
	State       string
}

func (e *RedirectError) Error() string { return "flow: redirect error: " + e.Code }

// Location renders the redirect target: the bound redirect URI with
// error, optional error_description, and optional state appended.
func (e *RedirectError) Location() string {
	loc, err := url.Parse(e.RedirectURI)
	if err != nil {
		return e.RedirectURI
	}
	q := loc.Query()
	q.Set("error", e.Code)
	if e.Description != "" {
		q.Set("error_description", e.Description)
	}
	if e.State != "" {
		q.Set("state", e.State)
	}
	loc.RawQuery = q.Encode()
	return loc.String()
}

// JSONError is a token- or refresh-endpoint failure reported as a JSON
// body with an HTTP status of 400 or 401.
type JSONError struct {
	Status      int
	Code        string
	Description string
	// WWWAuthenticate is set only when Status == 401 (client auth failure).
	WWWAuthenticate string
}

func (e *JSONError) Error() string { return "flow: json error: " + e.Code }

type jsonErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// Body renders the standard {"error": ..., "error_description": ...} JSON
// body a host sends alongside e.Status.
func (e *JSONError) Body() string {
	encoded, _ := json.Marshal(jsonErrorBody{Error: e.Code, ErrorDescription: e.Description})
	return string(encoded)
}

// ResourceDenial is a bearer-token problem on the resource-protection
// flow, reported via WWW-Authenticate.
type ResourceDenial struct {
	Status          int
	Code            string
	Realm           string
	Scope           string
}

func (e *ResourceDenial) Error() string { return "flow: resource denial: " + e.Code }

// WWWAuthenticate renders the challenge header value, whitespace-
// normalized as "Bearer" followed by comma-separated key="value" pairs in
// the fixed order error, realm, scope — each omitted if unset.
func (e *ResourceDenial) WWWAuthenticate() string {
	var parts []string
	if e.Code != "" {
		parts = append(parts, `error="`+e.Code+`"`)
	}
	if e.Realm != "" {
		parts = append(parts, `realm="`+e.Realm+`"`)
	}
	if e.Scope != "" {
		parts = append(parts, `scope="`+e.Scope+`"`)
	}
	if len(parts) == 0 {
		return "Bearer"
	}
	return "Bearer " + strings.Join(parts, ", ")
}
