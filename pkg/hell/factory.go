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

package hell

import (
	"fmt"

	"github.com/kadirpekel/archange/pkg/config"
)

// NewLedger builds a ledger from configuration. SQL backends resolve their
// database through the shared pool so connections are reused across
// components.
func NewLedger(cfg *config.Config, pool *config.DBPool) (Ledger, error) {
	ledgerCfg := cfg.Admission.Hell.Ledger

	switch ledgerCfg.Backend {
	case "", "memory":
		return NewMemoryLedger(), nil

	case "sql":
		dbCfg, ok := cfg.GetDatabase(ledgerCfg.SQLDatabase)
		if !ok {
			return nil, fmt.Errorf("ledger references unknown database: %s", ledgerCfg.SQLDatabase)
		}
		db, err := pool.Get(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open ledger database: %w", err)
		}
		return NewSQLLedger(db, dbCfg.Dialect())

	default:
		return nil, fmt.Errorf("unsupported ledger backend: %s", ledgerCfg.Backend)
	}
}
