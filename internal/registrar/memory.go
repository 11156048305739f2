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

package registrar

import (
	"context"
	"sync"
)

// MemoryBackend is an in-memory, concurrency-safe Backend suitable for
// tests and the demo server. The registrar's shared-resource policy treats
// client records as read-mostly; writes take a brief exclusive lock.
type MemoryBackend struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewMemoryBackend builds an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{clients: make(map[string]Client)}
}

// Register adds or replaces a client record.
func (m *MemoryBackend) Register(c Client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[c.ClientID] = c
}

func (m *MemoryBackend) ClientByID(ctx context.Context, clientID string) (Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[clientID]
	if !ok {
		return Client{}, ErrUnregistered
	}
	return c, nil
}
