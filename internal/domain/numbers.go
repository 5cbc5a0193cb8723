/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"strconv"
	"strings"
)

// SplitSceneNumber splits "12B" into its numeric prefix 12 and suffix "B".
// ok is false when the label has no numeric prefix.
func SplitSceneNumber(s string) (n int, suffix string, ok bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, s, false
	}
	v, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, s, false
	}
	return v, s[i:], true
}

// CompareSceneNumbers orders scene labels by numeric prefix, then suffix:
// "4" < "4A" < "4B" < "5" < "10". Labels without a numeric prefix sort last.
func CompareSceneNumbers(a, b string) int {
	an, as, aok := SplitSceneNumber(a)
	bn, bs, bok := SplitSceneNumber(b)
	switch {
	case aok && !bok:
		return -1
	case !aok && bok:
		return 1
	case an != bn:
		if an < bn {
			return -1
		}
		return 1
	}
	return strings.Compare(as, bs)
}

// SuffixAfter returns the first free label that sorts after prev and keeps
// its numeric prefix: "4" gives "4A", "4A" gives "4B", and with "4B" taken
// as the bound "4A" gives "4AA". An empty prev counts as "0". When before is
// set the label must also sort before it; ok is false when no label within
// three suffix letters fits.
func SuffixAfter(prev, before string, used func(string) bool) (string, bool) {
	prev = strings.ToUpper(strings.TrimSpace(prev))
	if prev == "" {
		prev = "0"
	}
	fits := func(s string) bool {
		return !used(s) && CompareSceneNumbers(s, prev) > 0 && (before == "" || CompareSceneNumbers(s, before) < 0)
	}
	if n, _, ok := SplitSceneNumber(prev); ok {
		base := strconv.Itoa(n)
		for c := 'A'; c <= 'Z'; c++ {
			if s := base + string(c); fits(s) {
				return s, true
			}
		}
	}
	for depth, stem := 0, prev; before == "" || depth < 3; depth, stem = depth+1, stem+"A" {
		for c := 'A'; c <= 'Z'; c++ {
			if s := stem + string(c); fits(s) {
				return s, true
			}
		}
	}
	return "", false
}

// NumberAfter returns a free scene label that sorts after prev and before
// next. With no next scene, or no room between the two, the next free integer
// after the highest numeric label is returned.
func NumberAfter(prev, next string, highest int, used func(string) bool) string {
	if next != "" {
		if s, ok := SuffixAfter(prev, next, used); ok {
			return s
		}
	}
	for n := highest + 1; ; n++ {
		if s := strconv.Itoa(n); !used(s) {
			return s
		}
	}
}
