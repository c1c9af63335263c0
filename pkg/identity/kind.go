// Copyright 2025 Kadir Pekel
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

// Package identity classifies inbound requests to an identity descriptor.
package identity

// Kind is the closed set of identity kinds a request can resolve to.
// Kinds are ordered by trust: a valid API key wins over a known footprint
// cookie, which wins over an authenticated-session footprint, which wins
// over falling back to the raw IP.
type Kind string

const (
	// KindIP identifies a caller only by its network address.
	KindIP Kind = "ip"

	// KindUnknown identifies a caller by a previously issued anonymous
	// footprint cookie.
	KindUnknown Kind = "unknown"

	// KindAuthWeb identifies a caller by an authenticated session footprint
	// on a non-API path.
	KindAuthWeb Kind = "auth-web"

	// KindAuthAPI identifies a caller by an API key without trust status.
	KindAuthAPI Kind = "auth-api"

	// KindTrustAPI identifies a caller by a registered trusted API key.
	// Trust-api callers bypass rate limiting and are single-origin.
	KindTrustAPI Kind = "trust-api"
)

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	switch k {
	case KindIP, KindUnknown, KindAuthWeb, KindAuthAPI, KindTrustAPI:
		return true
	}
	return false
}

// MultiOrigin reports whether callers of this kind may accumulate multiple
// origins (device/browser variants). Trust-api callers are single-origin.
func (k Kind) MultiOrigin() bool {
	switch k {
	case KindIP, KindUnknown, KindAuthWeb, KindAuthAPI:
		return true
	case KindTrustAPI:
		return false
	}
	return false
}

// Unlimited reports whether the kind bypasses the token bucket.
func (k Kind) Unlimited() bool {
	return k == KindTrustAPI
}
