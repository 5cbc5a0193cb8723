/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package screenplay classifies plain-text screenplay lines and groups them
// into scene spans. It understands the conventional visual grammar only:
// sluglines, character cues, parentheticals, dialogue, action and transitions.
package screenplay

import "sceneledger/internal/domain"

// RawLine is one physical line of the source document.
type RawLine struct {
	Index  int
	Text   string
	Indent int // count of leading whitespace runes
	// Invalid marks lines that were not valid UTF-8 before sanitization.
	Invalid bool
}

// RoleKind tags the variant held by a LineRole.
type RoleKind int

const (
	RoleNone RoleKind = iota // no previous line
	RoleSceneHeading
	RoleCharacterCue
	RoleParenthetical
	RoleDialogue
	RoleAction
	RoleTransition
	RolePageBreak
	RoleBlank
	RoleUnclassified
)

var roleNames = [...]string{"None", "SceneHeading", "CharacterCue", "Parenthetical", "Dialogue", "Action", "Transition", "PageBreak", "Blank", "Unclassified"}

func (k RoleKind) String() string {
	if k < 0 || int(k) >= len(roleNames) {
		return "Unknown"
	}
	return roleNames[k]
}

// LineRole is the syntactic role of a line.
// Text carries the trimmed content for Parenthetical, Dialogue, Action,
// Transition and Unclassified. Heading is set for SceneHeading only; Name and
// Extension for CharacterCue only.
type LineRole struct {
	Kind      RoleKind
	Text      string
	Heading   *Heading
	Name      string
	Extension string
	// MalformedHeading marks an Action line that looked like a slugline but
	// yielded no location.
	MalformedHeading bool
}

// Heading is the parsed content of a slugline.
type Heading struct {
	Number    string // embedded scene number, empty if none
	IntExt    domain.IntExt
	Location  string
	TimeOfDay domain.TimeOfDay
}

// Is reports whether the role has one of the given kinds.
func (r LineRole) Is(kinds ...RoleKind) bool {
	for _, k := range kinds {
		if r.Kind == k {
			return true
		}
	}
	return false
}

// Span is a scene's slice of the classified line stream.
type Span struct {
	Number   string
	Explicit bool     // number was embedded in the slugline
	Heading  *Heading // nil for the implicit scene of a heading-less script
	Lines    domain.LineSpan
	Notes    []string // review notes raised while segmenting
}
