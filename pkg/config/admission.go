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

import (
	"fmt"
	"time"
)

// AdmissionConfig configures the trust and admission-control engine.
type AdmissionConfig struct {
	// Enabled controls whether admission control is active.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Bucket configures the per-origin token buckets.
	Bucket BucketConfig `yaml:"bucket" json:"bucket"`

	// Hell configures ban escalation and the ban ledger.
	Hell HellConfig `yaml:"hell" json:"hell"`

	// TrustedKeys registers the known API keys and their trust level.
	TrustedKeys []APIKeyConfig `yaml:"trusted_keys,omitempty" json:"trusted_keys,omitempty"`
}

// BucketConfig configures the token bucket limiter.
type BucketConfig struct {
	// Limit holds the token capacity per identity kind. Trust-api callers
	// bypass the bucket entirely and have no entry here.
	Limit BucketLimits `yaml:"limit" json:"limit"`

	// FrameLifetimeSeconds is the shared refill window in seconds.
	FrameLifetimeSeconds int `yaml:"frame_lifetime_seconds,omitempty" json:"frame_lifetime_seconds,omitempty"`
}

// BucketLimits holds token capacities per identity kind.
type BucketLimits struct {
	IP      int `yaml:"ip,omitempty" json:"ip,omitempty"`
	Unknown int `yaml:"unknown,omitempty" json:"unknown,omitempty"`
	AuthWeb int `yaml:"auth_web,omitempty" json:"auth_web,omitempty"`
	AuthAPI int `yaml:"auth_api,omitempty" json:"auth_api,omitempty"`
}

// FrameLifetime returns the refill window as a duration.
func (c *BucketConfig) FrameLifetime() time.Duration {
	return time.Duration(c.FrameLifetimeSeconds) * time.Second
}

// HellConfig configures ban escalation policy and the ban ledger.
type HellConfig struct {
	// DelayedLifetimeMinutes is how long a DELAYED ban lasts.
	DelayedLifetimeMinutes int `yaml:"delayed_lifetime_minutes,omitempty" json:"delayed_lifetime_minutes,omitempty"`

	// StrikeBudget is how many delay-level violations are tolerated within
	// the strike window before escalating to a full ban.
	StrikeBudget int `yaml:"strike_budget,omitempty" json:"strike_budget,omitempty"`

	// StrikeWindowMinutes is the rolling window the strike budget lives in.
	StrikeWindowMinutes int `yaml:"strike_window_minutes,omitempty" json:"strike_window_minutes,omitempty"`

	// BlockedLifetimeHours is how long a budget-exhaustion BLOCKED ban lasts.
	BlockedLifetimeHours int `yaml:"blocked_lifetime_hours,omitempty" json:"blocked_lifetime_hours,omitempty"`

	// RepeatOffenseLifetimeHours is how long a BLOCKED ban lasts when an
	// origin exhausts its bucket while already DELAYED.
	RepeatOffenseLifetimeHours int `yaml:"repeat_offense_lifetime_hours,omitempty" json:"repeat_offense_lifetime_hours,omitempty"`

	// Ledger configures the ban record store.
	Ledger LedgerConfig `yaml:"ledger" json:"ledger"`
}

// DelayedLifetime returns the DELAYED ban duration.
func (c *HellConfig) DelayedLifetime() time.Duration {
	return time.Duration(c.DelayedLifetimeMinutes) * time.Minute
}

// StrikeWindow returns the strike budget rolling window.
func (c *HellConfig) StrikeWindow() time.Duration {
	return time.Duration(c.StrikeWindowMinutes) * time.Minute
}

// BlockedLifetime returns the budget-exhaustion BLOCKED ban duration.
func (c *HellConfig) BlockedLifetime() time.Duration {
	return time.Duration(c.BlockedLifetimeHours) * time.Hour
}

// RepeatOffenseLifetime returns the repeat-offense BLOCKED ban duration.
func (c *HellConfig) RepeatOffenseLifetime() time.Duration {
	return time.Duration(c.RepeatOffenseLifetimeHours) * time.Hour
}

// LedgerConfig configures the ban record store.
type LedgerConfig struct {
	// Backend is the storage backend ("memory" or "sql").
	Backend string `yaml:"backend,omitempty" json:"backend,omitempty"`

	// SQLDatabase references a database from the databases section.
	// Required when backend is "sql".
	SQLDatabase string `yaml:"sql_database,omitempty" json:"sql_database,omitempty"`
}

// APIKeyConfig registers a single API key.
type APIKeyConfig struct {
	// Name labels the key owner, for logging only.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Key is the opaque key value matched against the request header.
	Key string `yaml:"key" json:"key"`

	// Trusted grants the key trust-api status (no rate limiting).
	Trusted bool `yaml:"trusted,omitempty" json:"trusted,omitempty"`
}

// IsEnabled returns true if admission control is enabled.
func (c *AdmissionConfig) IsEnabled() bool {
	return c != nil && (c.Enabled == nil || *c.Enabled)
}

// SetDefaults applies the engine's stock limits and lifetimes.
func (c *AdmissionConfig) SetDefaults() {
	if c.Enabled == nil {
		c.Enabled = BoolPtr(true)
	}
	if c.Bucket.Limit.IP == 0 {
		c.Bucket.Limit.IP = 10
	}
	if c.Bucket.Limit.Unknown == 0 {
		c.Bucket.Limit.Unknown = 20
	}
	if c.Bucket.Limit.AuthWeb == 0 {
		c.Bucket.Limit.AuthWeb = 30
	}
	if c.Bucket.Limit.AuthAPI == 0 {
		c.Bucket.Limit.AuthAPI = 30
	}
	if c.Bucket.FrameLifetimeSeconds == 0 {
		c.Bucket.FrameLifetimeSeconds = 10
	}
	if c.Hell.DelayedLifetimeMinutes == 0 {
		c.Hell.DelayedLifetimeMinutes = 5
	}
	if c.Hell.StrikeBudget == 0 {
		c.Hell.StrikeBudget = 5
	}
	if c.Hell.StrikeWindowMinutes == 0 {
		c.Hell.StrikeWindowMinutes = 60
	}
	if c.Hell.BlockedLifetimeHours == 0 {
		c.Hell.BlockedLifetimeHours = 24
	}
	if c.Hell.RepeatOffenseLifetimeHours == 0 {
		c.Hell.RepeatOffenseLifetimeHours = 1
	}
	if c.Hell.Ledger.Backend == "" {
		c.Hell.Ledger.Backend = "memory"
	}
}

// Validate checks the admission configuration.
func (c *AdmissionConfig) Validate() error {
	if !c.IsEnabled() {
		return nil
	}

	limits := map[string]int{
		"bucket.limit.ip":       c.Bucket.Limit.IP,
		"bucket.limit.unknown":  c.Bucket.Limit.Unknown,
		"bucket.limit.auth_web": c.Bucket.Limit.AuthWeb,
		"bucket.limit.auth_api": c.Bucket.Limit.AuthAPI,
	}
	for field, limit := range limits {
		if limit <= 0 {
			return fmt.Errorf("%s must be positive", field)
		}
	}

	if c.Bucket.FrameLifetimeSeconds <= 0 {
		return fmt.Errorf("bucket.frame_lifetime_seconds must be positive")
	}

	if c.Hell.StrikeBudget <= 0 {
		return fmt.Errorf("hell.strike_budget must be positive")
	}
	if c.Hell.DelayedLifetimeMinutes <= 0 {
		return fmt.Errorf("hell.delayed_lifetime_minutes must be positive")
	}
	if c.Hell.StrikeWindowMinutes <= 0 {
		return fmt.Errorf("hell.strike_window_minutes must be positive")
	}
	if c.Hell.BlockedLifetimeHours <= 0 {
		return fmt.Errorf("hell.blocked_lifetime_hours must be positive")
	}
	if c.Hell.RepeatOffenseLifetimeHours <= 0 {
		return fmt.Errorf("hell.repeat_offense_lifetime_hours must be positive")
	}

	switch c.Hell.Ledger.Backend {
	case "memory":
	case "sql":
		if c.Hell.Ledger.SQLDatabase == "" {
			return fmt.Errorf("hell.ledger.backend 'sql' requires 'sql_database' reference")
		}
	default:
		return fmt.Errorf("invalid hell.ledger.backend %q, must be 'memory' or 'sql'", c.Hell.Ledger.Backend)
	}

	seen := make(map[string]bool, len(c.TrustedKeys))
	for i, key := range c.TrustedKeys {
		if key.Key == "" {
			return fmt.Errorf("trusted_keys[%d].key is required", i)
		}
		if seen[key.Key] {
			return fmt.Errorf("trusted_keys[%d].key is duplicated", i)
		}
		seen[key.Key] = true
	}

	return nil
}
