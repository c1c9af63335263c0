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

package main

import (
	"fmt"

	"github.com/kadirpekel/archange"
	"github.com/kadirpekel/archange/pkg/config"
)

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(archange.GetVersion().String())
	return nil
}

// ValidateCmd validates a configuration file.
type ValidateCmd struct {
	// Config is the configuration file path (positional argument)
	Config string `arg:"" name:"config" help:"Configuration file path." placeholder:"PATH"`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	config.LoadDotEnv()

	cfg, err := config.LoadConfig(c.Config)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Printf("Configuration OK: %s\n", c.Config)
	fmt.Printf("  server:    %s (api prefix %s)\n", cfg.Server.Address(), cfg.Server.APIPrefix)
	fmt.Printf("  admission: enabled=%t, ledger=%s\n",
		cfg.Admission.IsEnabled(), cfg.Admission.Hell.Ledger.Backend)
	fmt.Printf("  keys:      %d registered\n", len(cfg.Admission.TrustedKeys))
	return nil
}
