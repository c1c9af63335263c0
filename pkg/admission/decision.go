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
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kadirpekel/archange/pkg/hell"
)

// Decision is the outcome of one admission check.
type Decision string

const (
	DecisionAllow        Decision = "allow"
	DecisionDenyBanned   Decision = "deny_banned"
	DecisionDenyExceeded Decision = "deny_exceeded"
	DecisionDenyUnauth   Decision = "deny_unauthorized"
)

// denyPayload is the machine-readable deny body for API paths.
type denyPayload struct {
	Archange struct {
		State bool         `json:"state"`
		Hell  *hellPayload `json:"hell,omitempty"`
	} `json:"archange"`
}

type hellPayload struct {
	Mode string `json:"mode"`
	To   int64  `json:"to"`
}

// writeBanDeny responds 403 with the ban metadata: JSON for API paths,
// a human-readable sentence for web paths.
func writeBanDeny(w http.ResponseWriter, apiPath bool, rec *hell.Record) {
	if apiPath {
		var payload denyPayload
		payload.Archange.State = false
		payload.Archange.Hell = &hellPayload{
			Mode: string(rec.Mode),
			To:   rec.ExpiresAt,
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(payload)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	if rec.ExpiresAt == 0 {
		fmt.Fprint(w, "You have been banned from this app")
		return
	}
	fmt.Fprintf(w, "You have been banned from this app until %s",
		time.UnixMilli(rec.ExpiresAt).UTC().Format(time.RFC3339))
}

// writeUnauthorizedDeny responds 403 for callers whose claimed identity is
// not backed by a registration. No ban metadata exists yet.
func writeUnauthorizedDeny(w http.ResponseWriter, apiPath bool) {
	if apiPath {
		var payload denyPayload
		payload.Archange.State = false
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(payload)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	fmt.Fprint(w, "Forbidden")
}
