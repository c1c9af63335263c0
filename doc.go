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

// Archange is an inbound-request trust and admission-control engine.
//
// It classifies every incoming request to an identity, bounds per-origin
// request rate with token buckets, and escalates repeat offenders through
// a persisted ban state machine. The engine ships as an HTTP middleware
// plus a small server wrapping it with sessions, metrics and
// introspection routes.
//
// Packages:
//
//   - pkg/identity: request classification to an identity descriptor
//   - pkg/caller: in-memory caller/origin directory and token buckets
//   - pkg/hell: ban ledger and escalation state machine
//   - pkg/admission: the per-request decision pipeline
//   - pkg/session: cookie sessions carrying anonymous footprints
//   - pkg/server: HTTP assembly, routes and lifecycle
//   - pkg/events: the runtime event hub
//   - pkg/config: configuration loading and validation
package archange
