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

package identity

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kadirpekel/archange/pkg/session"
)

// APIKeyHeader is the request header carrying an API key.
const APIKeyHeader = "X-Archange-Key"

// SocketLostValue is the sentinel identity value used when no network
// address can be determined for a request.
const SocketLostValue = "socket-lost"

// Origin describes where a single request came from. It is derived per
// request and never persisted.
type Origin struct {
	// Kind is the identity kind, chosen by priority (see Kind).
	Kind Kind

	// Value is the identity value: raw IP, footprint token, or API key.
	Value string

	// ClientIP is the request's network address, or SocketLostValue.
	ClientIP string

	// APIPath reports whether the request path is under the API prefix.
	APIPath bool

	// UserAgent is the parsed browser/OS pair.
	UserAgent UserAgent

	// RawUserAgent is the unparsed User-Agent header value.
	RawUserAgent string

	// TrustInconsistent is set when the request claims an identity its
	// registration does not back, e.g. an API key absent from the key
	// registry. Callers created from such an origin are unauthorized.
	TrustInconsistent bool

	// KeyName labels the registered API key, for logging.
	KeyName string
}

// Classifier derives a request's Origin from its headers and session.
type Classifier struct {
	apiPrefix string
	keys      *KeyRegistry
	now       func() time.Time
}

// NewClassifier creates a classifier. apiPrefix is the path prefix that
// marks API requests.
func NewClassifier(apiPrefix string, keys *KeyRegistry) *Classifier {
	return &Classifier{
		apiPrefix: apiPrefix,
		keys:      keys,
		now:       time.Now,
	}
}

// Classify derives the request's Origin. It always succeeds: every rule
// has a fallback, down to the socket-lost sentinel.
func (c *Classifier) Classify(r *http.Request, sess *session.Session) Origin {
	rawUA := r.Header.Get("User-Agent")

	origin := Origin{
		ClientIP:     clientIP(r),
		APIPath:      strings.HasPrefix(r.URL.Path, c.apiPrefix),
		UserAgent:    ParseUserAgent(rawUA),
		RawUserAgent: rawUA,
	}

	// Priority 1: an API key header.
	if key := r.Header.Get(APIKeyHeader); key != "" {
		origin.Value = key
		if reg, ok := c.keys.Lookup(key); ok {
			origin.KeyName = reg.Name
			if reg.Trusted {
				origin.Kind = KindTrustAPI
			} else {
				origin.Kind = KindAuthAPI
			}
		} else {
			// Unregistered key: classified auth-api but flagged, the
			// registry will refuse to authorize the caller.
			origin.Kind = KindAuthAPI
			origin.TrustInconsistent = true
		}
		return origin
	}

	if sess != nil {
		// Priority 2: authenticated footprint on a web path.
		if fp := sess.AuthFootprint(c.now()); fp != "" && !origin.APIPath {
			origin.Kind = KindAuthWeb
			origin.Value = fp
			return origin
		}

		// Priority 3: a previously issued anonymous footprint.
		if fp := sess.KnownFootprint(); fp != "" {
			origin.Kind = KindUnknown
			origin.Value = fp
			return origin
		}
	}

	// Priority 4: raw network address.
	origin.Kind = KindIP
	origin.Value = origin.ClientIP
	return origin
}

// clientIP resolves the request's address: forwarded-for header first
// entry, then the socket address, then the socket-lost sentinel.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
			return host
		}
		return r.RemoteAddr
	}

	return SocketLostValue
}
