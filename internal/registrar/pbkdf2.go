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
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// DefaultIterations matches the reference PBKDF2 policy: 2^16 rounds.
const DefaultIterations = 1 << 16

const saltLen = 16
const keyLen = 32

// PBKDF2Policy is the default PasswordPolicy: PBKDF2-HMAC-SHA256 with a
// per-client random salt and a configurable iteration count.
type PBKDF2Policy struct {
	Iterations int
}

// NewPBKDF2Policy builds a policy with the given iteration count, or
// DefaultIterations if iterations <= 0.
func NewPBKDF2Policy(iterations int) *PBKDF2Policy {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &PBKDF2Policy{Iterations: iterations}
}

// stored layout: [salt(16) | iterations(4, big-endian) | derived key(32)]
func (p *PBKDF2Policy) Store(clientID, passphrase string) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("registrar: generate salt: %w", err)
	}
	derived := pbkdf2.Key([]byte(passphrase), saltedInput(clientID, salt), p.Iterations, keyLen, sha256.New)

	out := make([]byte, 0, saltLen+4+keyLen)
	out = append(out, salt...)
	out = append(out, encodeUint32(uint32(p.Iterations))...)
	out = append(out, derived...)
	return out, nil
}

func (p *PBKDF2Policy) Check(clientID, passphrase string, stored []byte) error {
	if len(stored) != saltLen+4+keyLen {
		return errors.New("registrar: malformed stored secret")
	}
	salt := stored[:saltLen]
	iterations := int(decodeUint32(stored[saltLen : saltLen+4]))
	want := stored[saltLen+4:]

	got := pbkdf2.Key([]byte(passphrase), saltedInput(clientID, salt), iterations, keyLen, sha256.New)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return errors.New("registrar: secret mismatch")
	}
	return nil
}

// saltedInput binds the client_id into the salt, matching the reference
// policy's use of the client identifier as a salt prefix.
func saltedInput(clientID string, salt []byte) []byte {
	out := make([]byte, 0, len(clientID)+len(salt))
	out = append(out, clientID...)
	out = append(out, salt...)
	return out
}

func encodeUint32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func decodeUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
