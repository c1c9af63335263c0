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

// Package config defines the engine configuration and its YAML loader.
package config

import (
	"fmt"
)

// Config is the root configuration for the archange engine.
type Config struct {
	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server" json:"server"`

	// Session configures the session cookie layer.
	Session SessionConfig `yaml:"session" json:"session"`

	// Admission configures the trust and admission-control engine.
	Admission AdmissionConfig `yaml:"admission" json:"admission"`

	// Databases holds named SQL databases referenced by other sections.
	Databases map[string]*DatabaseConfig `yaml:"databases,omitempty" json:"databases,omitempty"`
}

// SetDefaults applies defaults to every section.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.Session.SetDefaults()
	c.Admission.SetDefaults()
	for _, db := range c.Databases {
		db.SetDefaults()
	}
}

// Validate checks the whole configuration, failing fast on the first error.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := c.Admission.Validate(); err != nil {
		return fmt.Errorf("admission: %w", err)
	}
	for name, db := range c.Databases {
		if err := db.Validate(); err != nil {
			return fmt.Errorf("databases.%s: %w", name, err)
		}
	}

	// Cross-section reference: the hell ledger may point at a named database.
	if c.Admission.Hell.Ledger.Backend == "sql" {
		name := c.Admission.Hell.Ledger.SQLDatabase
		if _, ok := c.GetDatabase(name); !ok {
			return fmt.Errorf("admission.hell.ledger.sql_database %q not found in databases", name)
		}
	}

	return nil
}

// GetDatabase returns the named database config.
func (c *Config) GetDatabase(name string) (*DatabaseConfig, bool) {
	db, ok := c.Databases[name]
	return db, ok
}

// BoolPtr returns a pointer to the given bool, for optional config fields.
func BoolPtr(b bool) *bool {
	return &b
}
