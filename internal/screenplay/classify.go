/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxCueLength is the longest trimmed line still considered a character cue.
const MaxCueLength = 40

var (
	reExtension   = regexp.MustCompile(`\s*(\([^()]*\))\s*$`)
	reGenericTo   = regexp.MustCompile(`^[A-Z][A-Z ]* TO:$`)
	rePageRule    = regexp.MustCompile(`^={3,}$`)
	reParenthesis = regexp.MustCompile(`^\([^()]*\)$`)
)

// transitions are matched after upper-casing the trimmed line.
var transitions = map[string]struct{}{
	"CUT TO:": {}, "FADE IN:": {}, "FADE OUT.": {}, "FADE OUT:": {}, "DISSOLVE TO:": {},
	"SMASH CUT TO:": {}, "MATCH CUT TO:": {}, "JUMP CUT TO:": {}, "WIPE TO:": {},
	"FADE TO BLACK.": {}, "CUT TO BLACK.": {},
}

// Classify assigns a role to line given the role of the line before it.
// next is the following physical line, or nil at end of document; it is only
// consulted to tell a character cue from an all-caps action line.
func Classify(line RawLine, prev LineRole, next *RawLine) LineRole {
	if line.Invalid {
		return LineRole{Kind: RoleUnclassified, Text: strings.TrimSpace(line.Text)}
	}
	t := strings.TrimSpace(line.Text)
	if t == "" {
		if strings.ContainsRune(line.Text, '\f') {
			return LineRole{Kind: RolePageBreak}
		}
		return LineRole{Kind: RoleBlank}
	}
	if rePageRule.MatchString(t) {
		return LineRole{Kind: RolePageBreak}
	}

	malformed := false
	if h, ok := ParseHeading(t); ok {
		if h.Location != "" {
			return LineRole{Kind: RoleSceneHeading, Text: t, Heading: &h}
		}
		malformed = true
	}

	if !malformed {
		if name, ext, ok := parseCue(t, next); ok {
			return LineRole{Kind: RoleCharacterCue, Text: t, Name: name, Extension: ext}
		}
	}
	if reParenthesis.MatchString(t) && prev.Is(RoleCharacterCue, RoleDialogue) {
		return LineRole{Kind: RoleParenthetical, Text: t}
	}
	if prev.Is(RoleCharacterCue, RoleParenthetical, RoleDialogue) {
		return LineRole{Kind: RoleDialogue, Text: t}
	}
	if isTransition(t) {
		return LineRole{Kind: RoleTransition, Text: strings.TrimSpace(strings.TrimPrefix(t, ">"))}
	}
	return LineRole{Kind: RoleAction, Text: t, MalformedHeading: malformed}
}

// ClassifyAll classifies a whole document in order.
func ClassifyAll(lines []RawLine) []LineRole {
	out := make([]LineRole, len(lines))
	prev := LineRole{Kind: RoleNone}
	for i, l := range lines {
		var next *RawLine
		if i+1 < len(lines) {
			next = &lines[i+1]
		}
		out[i] = Classify(l, prev, next)
		prev = out[i]
	}
	return out
}

func parseCue(t string, next *RawLine) (name, ext string, ok bool) {
	if utf8.RuneCountInString(t) > MaxCueLength {
		return "", "", false
	}
	forced := strings.HasPrefix(t, "@")
	body := strings.TrimSpace(strings.TrimPrefix(t, "@"))
	body = strings.TrimSpace(strings.TrimSuffix(body, "^"))

	var exts []string
	for {
		m := reExtension.FindStringSubmatchIndex(body)
		if m == nil || m[0] == 0 {
			break
		}
		exts = append([]string{strings.ToUpper(body[m[2]:m[3]])}, exts...)
		body = strings.TrimSpace(body[:m[0]])
	}
	if body == "" || strings.ContainsAny(body, "()") {
		return "", "", false
	}
	if !forced {
		if !isUpperOnly(body) || strings.ContainsAny(body[len(body)-1:], "!?:;,.") || isTransition(t) {
			return "", "", false
		}
		if next == nil || strings.TrimSpace(next.Text) == "" || isUpperOnly(strings.TrimSpace(next.Text)) {
			return "", "", false
		}
	}
	return NormalizeName(body), strings.Join(exts, " "), true
}

// NormalizeName trims, collapses internal whitespace, drops any trailing
// extension and upper-cases a character name.
func NormalizeName(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "@"))
	s = strings.TrimSuffix(s, "^")
	for {
		m := reExtension.FindStringIndex(s)
		if m == nil || m[0] == 0 {
			break
		}
		s = s[:m[0]]
	}
	return upper.String(strings.Join(strings.Fields(s), " "))
}

func isTransition(t string) bool {
	if strings.HasPrefix(t, ">") && !strings.HasSuffix(t, "<") {
		return true
	}
	u := strings.ToUpper(t)
	if _, ok := transitions[u]; ok {
		return true
	}
	return t == u && reGenericTo.MatchString(t)
}

// isUpperOnly reports whether s has at least one letter and no lower-case
// letters.
func isUpperOnly(s string) bool {
	letter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			letter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return letter
}
