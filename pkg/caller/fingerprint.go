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

package caller

import (
	"crypto/md5"
	"encoding/hex"
)

// Fingerprint derives the origin key for one device/browser combination
// under an identity. Not a security primitive, only a dedup key, so MD5's
// size and speed are the right trade.
func Fingerprint(rawUserAgent, identityValue, clientIP string) string {
	sum := md5.Sum([]byte(rawUserAgent + identityValue + clientIP))
	return hex.EncodeToString(sum[:])
}
