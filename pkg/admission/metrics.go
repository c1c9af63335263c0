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

package admission

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archange_admission_decisions_total",
		Help: "Admission decisions by outcome and identity kind.",
	}, []string{"decision", "kind"})

	bansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "archange_bans_total",
		Help: "Bans pushed or escalated, by resulting mode.",
	}, []string{"mode"})
)
