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

import "github.com/kadirpekel/archange/pkg/config"

// APIKey is a registered API key.
type APIKey struct {
	Name    string
	Trusted bool
}

// KeyRegistry holds the known API keys. Lookups are read-only after
// construction, so no locking is needed.
type KeyRegistry struct {
	keys map[string]APIKey
}

// NewKeyRegistry builds a registry from configuration.
func NewKeyRegistry(cfgs []config.APIKeyConfig) *KeyRegistry {
	keys := make(map[string]APIKey, len(cfgs))
	for _, c := range cfgs {
		keys[c.Key] = APIKey{
			Name:    c.Name,
			Trusted: c.Trusted,
		}
	}
	return &KeyRegistry{keys: keys}
}

// Lookup returns the registration for a key value.
func (r *KeyRegistry) Lookup(key string) (APIKey, bool) {
	k, ok := r.keys[key]
	return k, ok
}

// Len returns the number of registered keys.
func (r *KeyRegistry) Len() int {
	return len(r.keys)
}
