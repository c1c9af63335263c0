// SPDX-License-Identifier: AGPL-3.0
// Copyright 2025 Kadir Pekel
//
// Licensed under the GNU Affero General Public License v3.0 (AGPL-3.0) (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.gnu.org/licenses/agpl-3.0.en.html
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/kadirpekel/archange/pkg/config"
)

type contextKey struct{}

// FromContext returns the session attached to the request context, or nil.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(contextKey{}).(*Session); ok {
		return s
	}
	return nil
}

// Middleware loads the request's session from its cookie, creating a new
// session when the cookie is missing or its signature does not verify.
// Cookie values are signed with the configured secret so a client cannot
// claim an arbitrary session ID.
func Middleware(store *Store, cfg config.SessionConfig, secureCookies bool) func(http.Handler) http.Handler {
	secret := []byte(cfg.Secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess *Session

			if cookie, err := r.Cookie(cfg.CookieName); err == nil {
				if id, ok := verifyCookieValue(cookie.Value, secret); ok {
					sess, _ = store.Get(id)
				}
			}

			if sess == nil {
				sess = store.Create()
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    signCookieValue(sess.ID(), secret),
					Path:     "/",
					HttpOnly: true,
					Secure:   secureCookies,
					SameSite: http.SameSiteLaxMode,
					MaxAge:   cfg.CookieLifetimeDays * 24 * 60 * 60,
				})
			}

			ctx := context.WithValue(r.Context(), contextKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func signCookieValue(id string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(id))
	return id + "." + hex.EncodeToString(mac.Sum(nil))
}

func verifyCookieValue(value string, secret []byte) (string, bool) {
	id, sig, found := strings.Cut(value, ".")
	if !found || id == "" {
		return "", false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(id))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return "", false
	}
	return id, true
}
