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

// Package http adapts the protocol-agnostic flow engines onto net/http,
// using chi for routing. It is the only package in the module that knows
// about HTTP: every flow.WebRequest/flow.Response translation lives here.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/opentrusty/oauth2engine/internal/audit"
	"github.com/opentrusty/oauth2engine/internal/endpoint"
	"github.com/opentrusty/oauth2engine/internal/flow"
	"github.com/opentrusty/oauth2engine/internal/observability/metrics"
)

// Handler exposes the four protocol flows as HTTP endpoints.
type Handler struct {
	Endpoint *endpoint.Endpoint
	Audit    audit.Logger
	Metrics  *metrics.Recorder

	authorization flow.AuthorizationFlow
	accessToken   flow.AccessTokenFlow
	refresh       flow.RefreshFlow
	resource      flow.ResourceFlow
}

// NewHandler builds a Handler wired to ep's primitives. auditLogger may be
// nil to disable audit logging; recorder may be nil to disable metrics.
func NewHandler(ep *endpoint.Endpoint, auditLogger audit.Logger, recorder *metrics.Recorder) *Handler {
	return &Handler{
		Endpoint:      ep,
		Audit:         auditLogger,
		Metrics:       recorder,
		authorization: flow.AuthorizationFlow{Endpoint: ep},
		accessToken:   flow.AccessTokenFlow{Endpoint: ep},
		refresh:       flow.RefreshFlow{Endpoint: ep},
		resource:      flow.ResourceFlow{Endpoint: ep},
	}
}

func (h *Handler) audit(ctx context.Context, eventType, resource string, metadata map[string]any) {
	if h.Audit == nil {
		return
	}
	h.Audit.Log(ctx, audit.Event{Type: eventType, Resource: resource, Metadata: metadata})
}

// NewRouter builds the chi router exposing the authorize, token, and a
// demo protected-resource endpoint. rl may be nil to skip rate limiting.
func NewRouter(h *Handler, rl *RateLimiter) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(LoggingMiddleware())
	if rl != nil {
		r.Use(RateLimitMiddleware(rl))
	}

	r.Get("/oauth2/authorize", h.Authorize)
	r.Post("/oauth2/authorize", h.Authorize)
	r.Post("/oauth2/token", h.Token)
	r.With(h.RequireScope()).Get("/oauth2/userinfo", h.UserInfo)

	return otelhttp.NewHandler(r, "http_request",
		otelhttp.WithSpanNameFormatter(func(operation string, req *http.Request) string {
			return req.Method + " " + req.URL.Path
		}),
	)
}

// httpRequest adapts *http.Request to flow.WebRequest.
type httpRequest struct {
	r *http.Request
}

func (a httpRequest) Query() (flow.Params, error) {
	return formParams(a.r.URL.Query()), nil
}

func (a httpRequest) URLBody() (flow.Params, error) {
	if err := a.r.ParseForm(); err != nil {
		return nil, err
	}
	return formParams(a.r.PostForm), nil
}

func (a httpRequest) AuthHeader() (string, bool) {
	v := a.r.Header.Get("Authorization")
	return v, v != ""
}

// formParams adapts url.Values to flow.Params, rejecting any key carrying
// more than one value as absent — guards against HTTP parameter pollution.
type formParams url.Values

func (p formParams) Get(key string) (string, bool) {
	v, ok := p[key]
	if !ok || len(v) != 1 {
		return "", false
	}
	return v[0], true
}

// Authorize runs the authorization-request flow.
//
// @Summary OAuth2 Authorize Endpoint
// @Description Starts the authorization flow (RFC 6749 Section 4.1.1)
// @Tags OAuth2
// @Param client_id query string true "Client ID"
// @Param redirect_uri query string false "Redirect URI"
// @Param response_type query string true "Response Type (must be 'code')"
// @Param scope query string false "Scopes"
// @Param state query string false "Opaque state echoed back on redirect"
// @Param code_challenge query string false "PKCE Challenge"
// @Param code_challenge_method query string false "PKCE Method (S256 or plain)"
// @Success 302 {string} string "Redirects with code and state"
// @Router /oauth2/authorize [get]
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	resp, err := h.authorization.Execute(r.Context(), httpRequest{r})
	if err != nil {
		h.audit(r.Context(), audit.TypeAuthorizationDenied, audit.ResourceCode, map[string]any{audit.AttrReason: err.Error()})
		h.Metrics.AuthorizationDenied(r.Context())
		h.writeFlowError(w, r, err)
		return
	}
	h.audit(r.Context(), audit.TypeAuthorizationGranted, audit.ResourceCode, nil)
	writeResponse(w, resp)
}

// Token runs the token-exchange flow, dispatching on grant_type.
//
// @Summary OAuth2 Token Endpoint
// @Description Exchanges an authorization code or refresh token for an access token (RFC 6749 Section 4.1.3, 6)
// @Tags OAuth2
// @Accept x-www-form-urlencoded
// @Produce json
// @Param grant_type formData string true "authorization_code or refresh_token"
// @Success 200 {object} tokenSuccessBody
// @Router /oauth2/token [post]
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	grantType := r.PostForm.Get("grant_type")
	var resp *flow.Response
	var err error
	switch grantType {
	case "refresh_token":
		resp, err = h.refresh.Execute(r.Context(), httpRequest{r})
	default:
		resp, err = h.accessToken.Execute(r.Context(), httpRequest{r})
	}
	if err != nil {
		h.writeFlowError(w, r, err)
		return
	}

	eventType := audit.TypeTokenIssued
	if grantType == "refresh_token" {
		eventType = audit.TypeTokenRefreshed
	}
	h.audit(r.Context(), eventType, audit.ResourceToken, map[string]any{audit.AttrGrantType: grantType})
	h.Metrics.TokenIssued(r.Context(), grantType)

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	writeResponse(w, resp)
}

// RequireScope returns middleware that runs the resource flow and rejects
// the request with a 401/403 WWW-Authenticate challenge on failure,
// otherwise attaching the resolved grant to the request context.
func (h *Handler) RequireScope() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			g, err := h.resource.Execute(r.Context(), httpRequest{r})
			if err != nil {
				h.Metrics.ResourceDenied(r.Context(), resourceDenialReason(err))
				h.writeFlowError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withGrant(r.Context(), g)))
		})
	}
}

// UserInfo is a minimal protected resource demonstrating ResourceFlow;
// real resource servers implement their own handlers behind RequireScope.
func (h *Handler) UserInfo(w http.ResponseWriter, r *http.Request) {
	g, _ := GetGrant(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{
		"sub":   g.OwnerID,
		"scope": g.Scope.String(),
	})
}

// resourceDenialReason extracts the WWW-Authenticate error code (or a
// generic fallback) from a resource-flow failure, for metrics labeling.
func resourceDenialReason(err error) string {
	var denial *flow.ResourceDenial
	if errors.As(err, &denial) && denial.Code != "" {
		return denial.Code
	}
	return "missing_or_malformed_header"
}

func (h *Handler) writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	var silent *flow.SilentDenial
	var redirect *flow.RedirectError
	var jsonErr *flow.JSONError
	var denial *flow.ResourceDenial
	var primitive *endpoint.PrimitiveError

	switch {
	case errors.As(err, &silent):
		w.WriteHeader(http.StatusBadRequest)
	case errors.As(err, &redirect):
		http.Redirect(w, r, redirect.Location(), http.StatusFound)
	case errors.As(err, &jsonErr):
		if jsonErr.WWWAuthenticate != "" {
			w.Header().Set("WWW-Authenticate", jsonErr.WWWAuthenticate)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(jsonErr.Status)
		_, _ = w.Write([]byte(jsonErr.Body()))
	case errors.As(err, &denial):
		w.Header().Set("WWW-Authenticate", denial.WWWAuthenticate())
		w.WriteHeader(denial.Status)
	case errors.As(err, &primitive):
		slog.ErrorContext(r.Context(), "oauth2 primitive failure", "primitive", primitive.Primitive, "err", primitive.Cause)
		w.WriteHeader(http.StatusInternalServerError)
	default:
		slog.ErrorContext(r.Context(), "oauth2 unclassified flow error", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func writeResponse(w http.ResponseWriter, resp *flow.Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	if resp.Location != "" {
		w.Header().Set("Location", resp.Location)
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.Status)
	if resp.Body != "" {
		_, _ = w.Write([]byte(resp.Body))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{"error": code, "error_description": description})
}
