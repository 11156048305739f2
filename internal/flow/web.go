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

// Package flow wires the primitive abstractions into the four protocol
// state machines: Authorization, AccessToken, Refresh and Resource. Flows
// perform no I/O themselves; they call exactly the primitives their
// algorithm requires, in the fixed order the protocol demands.
package flow

import "github.com/opentrusty/oauth2engine/internal/extension"

// Params is the read-only, unique-value-per-key view a flow requires over
// an inbound request's query string, form body, or header set. A key with
// more than one value MUST look up as absent, preventing parameter
// pollution attacks.
type Params = extension.Params

// WebRequest is the abstract inbound request a host adapts its native
// request type to. No flow ever touches HTTP/framework types directly.
type WebRequest interface {
	Query() (Params, error)
	URLBody() (Params, error)
	AuthHeader() (string, bool)
}

// Response is the abstract outbound response a flow produces; the host
// translates it into its native response type. Exactly one of the status
// builders below (OK, Redirect, ClientError, Unauthorized, Forbidden) is
// called per flow invocation, optionally followed by BodyText or BodyJSON.
type Response struct {
	Status      int
	Location    string
	ContentType string
	Body        string
	Headers     map[string]string
}

func newResponse() *Response {
	return &Response{Headers: make(map[string]string)}
}

// OK marks a 200; it sets no body itself, so a body setter may follow.
func (r *Response) OK() *Response {
	r.Status = 200
	return r
}

// Redirect sets a 302 to url.
func (r *Response) Redirect(url string) *Response {
	r.Status = 302
	r.Location = url
	return r
}

// ClientError marks a bare 400.
func (r *Response) ClientError() *Response {
	r.Status = 400
	return r
}

// Unauthorized marks a 401 carrying the given WWW-Authenticate value.
func (r *Response) Unauthorized(wwwAuthenticate string) *Response {
	r.Status = 401
	r.Headers["WWW-Authenticate"] = wwwAuthenticate
	return r
}

// Forbidden marks a 403 carrying the given WWW-Authenticate value.
func (r *Response) Forbidden(wwwAuthenticate string) *Response {
	r.Status = 403
	if wwwAuthenticate != "" {
		r.Headers["WWW-Authenticate"] = wwwAuthenticate
	}
	return r
}

// BodyText sets a text/plain body, keeping the already-assigned status.
func (r *Response) BodyText(s string) *Response {
	r.ContentType = "text/plain"
	r.Body = s
	return r
}

// BodyJSON sets an application/json body, keeping the already-assigned status.
func (r *Response) BodyJSON(s string) *Response {
	r.ContentType = "application/json"
	r.Body = s
	return r
}
