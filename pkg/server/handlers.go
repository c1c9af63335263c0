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

package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kadirpekel/archange"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

// handleWhoia reports how the engine sees the calling request: its
// identity kind, value and parsed user agent. Admitted requests only, so
// reaching it at all means the caller is in good standing.
func (s *Server) handleWhoia(w http.ResponseWriter, r *http.Request) {
	origin := s.engine.Classify(r)

	writeJSON(w, http.StatusOK, map[string]any{
		"archange": map[string]any{
			"state": true,
		},
		"identity": map[string]any{
			"kind":  string(origin.Kind),
			"value": origin.Value,
			"ip":    origin.ClientIP,
		},
		"user_agent": map[string]any{
			"browser":         origin.UserAgent.BrowserName,
			"browser_version": origin.UserAgent.BrowserVersion,
			"os":              origin.UserAgent.OSName,
			"os_version":      origin.UserAgent.OSVersion,
		},
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":     "archange",
		"version":  archange.Version,
		"uptime":   time.Since(s.startedAt).Round(time.Second).String(),
		"callers":  s.engine.Registry().Len(),
		"sessions": s.sessions.Len(),
	})
}
