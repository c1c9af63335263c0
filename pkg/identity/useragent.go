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

import "strings"

const unknownUA = "unknown"

// UserAgent is the browser/OS pair extracted from a User-Agent header.
// Unrecognized or missing components fall back to "unknown"; parsing
// never fails.
type UserAgent struct {
	BrowserName    string `json:"browser_name"`
	BrowserVersion string `json:"browser_version"`
	OSName         string `json:"os_name"`
	OSVersion      string `json:"os_version"`
}

// ParseUserAgent extracts the browser and OS from a raw User-Agent value.
// The match order matters: Chrome-family agents also advertise Safari, and
// Edge/Opera also advertise Chrome.
func ParseUserAgent(raw string) UserAgent {
	ua := UserAgent{
		BrowserName:    unknownUA,
		BrowserVersion: unknownUA,
		OSName:         unknownUA,
		OSVersion:      unknownUA,
	}
	if raw == "" {
		return ua
	}

	browsers := []struct {
		token string
		name  string
	}{
		{"Edg/", "Edge"},
		{"OPR/", "Opera"},
		{"Firefox/", "Firefox"},
		{"Chrome/", "Chrome"},
		{"Version/", "Safari"}, // Safari reports its version separately
		{"curl/", "curl"},
	}
	for _, b := range browsers {
		if idx := strings.Index(raw, b.token); idx != -1 {
			ua.BrowserName = b.name
			ua.BrowserVersion = readToken(raw[idx+len(b.token):])
			break
		}
	}

	switch {
	case strings.Contains(raw, "Windows NT "):
		ua.OSName = "Windows"
		ua.OSVersion = readVersionAfter(raw, "Windows NT ")
	case strings.Contains(raw, "Android "):
		ua.OSName = "Android"
		ua.OSVersion = readVersionAfter(raw, "Android ")
	case strings.Contains(raw, "iPhone OS "):
		ua.OSName = "iOS"
		ua.OSVersion = strings.ReplaceAll(readVersionAfter(raw, "iPhone OS "), "_", ".")
	case strings.Contains(raw, "Mac OS X "):
		ua.OSName = "macOS"
		ua.OSVersion = strings.ReplaceAll(readVersionAfter(raw, "Mac OS X "), "_", ".")
	case strings.Contains(raw, "Linux"):
		ua.OSName = "Linux"
	}

	return ua
}

// readToken reads up to the next space.
func readToken(s string) string {
	if i := strings.IndexByte(s, ' '); i != -1 {
		s = s[:i]
	}
	if s == "" {
		return unknownUA
	}
	return s
}

// readVersionAfter reads the version number following the given marker,
// stopping at the first character that cannot be part of one.
func readVersionAfter(s, marker string) string {
	idx := strings.Index(s, marker)
	if idx == -1 {
		return unknownUA
	}
	s = s[idx+len(marker):]

	end := 0
	for end < len(s) {
		c := s[end]
		if (c < '0' || c > '9') && c != '.' && c != '_' {
			break
		}
		end++
	}
	if end == 0 {
		return unknownUA
	}
	return s[:end]
}
