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

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/opentrusty/oauth2engine/internal/registrar"
	"github.com/opentrusty/oauth2engine/internal/scope"
)

// ClientBackend implements registrar.Backend over the oauth2_clients table.
type ClientBackend struct {
	db *DB
}

// NewClientBackend creates a new Postgres-backed client registrar.Backend.
func NewClientBackend(db *DB) *ClientBackend {
	return &ClientBackend{db: db}
}

// ClientByID satisfies registrar.Backend.
func (b *ClientBackend) ClientByID(ctx context.Context, clientID string) (registrar.Client, error) {
	var (
		c                   registrar.Client
		additionalRedirects []byte
		defaultScope        string
		kind, redirectMode  int
	)

	err := b.db.pool.QueryRow(ctx, `
		SELECT client_id, kind, hashed_secret, default_redirect_uri,
		       additional_redirects, redirect_mode, default_scope
		FROM oauth2_clients
		WHERE client_id = $1
	`, clientID).Scan(
		&c.ClientID, &kind, &c.HashedSecret, &c.DefaultRedirectURI,
		&additionalRedirects, &redirectMode, &defaultScope,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return registrar.Client{}, registrar.ErrUnregistered
		}
		return registrar.Client{}, fmt.Errorf("postgres: load client: %w", err)
	}
	c.Kind = registrar.Kind(kind)
	c.RedirectMode = registrar.RedirectMode(redirectMode)

	if err := json.Unmarshal(additionalRedirects, &c.AdditionalRedirects); err != nil {
		return registrar.Client{}, fmt.Errorf("postgres: decode additional redirects: %w", err)
	}

	parsedScope, err := scope.Parse(defaultScope)
	if err != nil {
		return registrar.Client{}, fmt.Errorf("postgres: decode default scope: %w", err)
	}
	c.DefaultScope = parsedScope

	return c, nil
}

// Register upserts a client record. Used by provisioning tooling; the
// protocol engine itself only ever reads through ClientByID.
func (b *ClientBackend) Register(ctx context.Context, c registrar.Client) error {
	additionalRedirects, err := json.Marshal(c.AdditionalRedirects)
	if err != nil {
		return fmt.Errorf("postgres: encode additional redirects: %w", err)
	}

	_, err = b.db.pool.Exec(ctx, `
		INSERT INTO oauth2_clients (
			client_id, kind, hashed_secret, default_redirect_uri,
			additional_redirects, redirect_mode, default_scope
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (client_id) DO UPDATE SET
			kind = EXCLUDED.kind,
			hashed_secret = EXCLUDED.hashed_secret,
			default_redirect_uri = EXCLUDED.default_redirect_uri,
			additional_redirects = EXCLUDED.additional_redirects,
			redirect_mode = EXCLUDED.redirect_mode,
			default_scope = EXCLUDED.default_scope,
			updated_at = now()
	`,
		c.ClientID, c.Kind, c.HashedSecret, c.DefaultRedirectURI,
		additionalRedirects, c.RedirectMode, c.DefaultScope.String(),
	)
	if err != nil {
		return fmt.Errorf("postgres: register client: %w", err)
	}
	return nil
}
