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

package config

import "fmt"

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Host is the listen address. Empty means all interfaces.
	Host string `yaml:"host,omitempty" json:"host,omitempty"`

	// Port is the listen port.
	Port int `yaml:"port,omitempty" json:"port,omitempty"`

	// HTTPSMode marks the deployment as TLS-terminated; session cookies
	// are issued with the Secure flag when set.
	HTTPSMode bool `yaml:"https_mode,omitempty" json:"https_mode,omitempty"`

	// APIPrefix is the path prefix that classifies a request as an API call.
	APIPrefix string `yaml:"api_prefix,omitempty" json:"api_prefix,omitempty"`
}

// Address returns the host:port listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SetDefaults applies default values.
func (c *ServerConfig) SetDefaults() {
	if c.Port == 0 {
		c.Port = 9999
	}
	if c.APIPrefix == "" {
		c.APIPrefix = "/api"
	}
}

// Validate checks the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.APIPrefix == "" || c.APIPrefix[0] != '/' {
		return fmt.Errorf("api_prefix must start with '/'")
	}
	return nil
}

// SessionConfig configures the session cookie layer.
type SessionConfig struct {
	// Secret protects session identifiers. Required.
	Secret string `yaml:"secret" json:"secret"`

	// CookieName is the session cookie name.
	CookieName string `yaml:"cookie_name,omitempty" json:"cookie_name,omitempty"`

	// CookieLifetimeDays is the session cookie lifetime in days.
	// Zero means a session cookie (no Max-Age).
	CookieLifetimeDays int `yaml:"cookie_lifetime_days,omitempty" json:"cookie_lifetime_days,omitempty"`
}

// SetDefaults applies default values.
func (c *SessionConfig) SetDefaults() {
	if c.CookieName == "" {
		c.CookieName = "archange_session"
	}
}

// Validate checks the session configuration.
func (c *SessionConfig) Validate() error {
	if c.Secret == "" {
		return fmt.Errorf("secret is required")
	}
	if c.CookieLifetimeDays < 0 {
		return fmt.Errorf("cookie_lifetime_days must be non-negative")
	}
	return nil
}
