/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package version holds the build version, set at link time:
//
//	go build -ldflags "-X sceneledger/internal/version.Version=v0.3.0 -X sceneledger/internal/version.Commit=abc123"
package version

import (
	"fmt"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = ""
)

// String returns the version, with the commit when known. Untagged builds
// fall back to the module version recorded by the toolchain.
func String() string {
	v, c := Version, Commit
	if v == "dev" || c == "" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			if v == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
				v = bi.Main.Version
			}
			if c == "" {
				for _, s := range bi.Settings {
					if s.Key == "vcs.revision" && len(s.Value) >= 7 {
						c = s.Value[:7]
					}
				}
			}
		}
	}
	if c == "" {
		return v
	}
	return fmt.Sprintf("%s (%s)", v, c)
}
