/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"slices"
	"time"
)

// This file defines the scene ledger data model shared by the parser, the
// reconciler and the storage layers. It serializes to the JSON ledger export.

// Scene is one entry of the scene ledger.
type Scene struct {
	Number    string    `json:"sceneNumber"`
	IntExt    IntExt    `json:"intExt"`
	Location  string    `json:"location"`
	TimeOfDay TimeOfDay `json:"timeOfDay"`
	Synopsis  string    `json:"synopsis"`
	Cast      []string  `json:"castPresent"`
	Elements  Elements  `json:"elements"`
	Span      LineSpan  `json:"lineSpan"`
	Pages     Eighths   `json:"pageEstimate"`
	Revision  uint64    `json:"revision"`
	Origin    Origin    `json:"origin"`

	NeedsReview bool     `json:"needsReview,omitempty"`
	ReviewNotes []string `json:"reviewNotes,omitempty"`
	Orphaned    bool     `json:"orphaned,omitempty"`

	// Base holds the user-set fields as they were last produced by a parse.
	// It is nil for scenes created by hand.
	Base *UserFields `json:"base,omitempty"`
}

// UserFields are the scene fields a user may edit by hand. A re-import never
// overwrites them once edited.
type UserFields struct {
	IntExt    IntExt    `json:"intExt"`
	Location  string    `json:"location"`
	TimeOfDay TimeOfDay `json:"timeOfDay"`
	Elements  Elements  `json:"elements"`
}

// HeadingKey identifies a scene by its slugline content.
type HeadingKey struct {
	IntExt    IntExt
	Location  string
	TimeOfDay TimeOfDay
}

// LineSpan is an inclusive range of line indices in the source document.
type LineSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ImportRecord summarizes one import run for history tables.
type ImportRecord struct {
	ID         string    `json:"id"`
	ParsedAt   time.Time `json:"parsedAt"`
	SourceHash string    `json:"sourceHash"`
	Scenes     int       `json:"scenes"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Orphaned   int       `json:"orphaned"`
	Conflicts  int       `json:"conflicts"`
}

// Overlaps reports whether both spans share at least one line.
func (s LineSpan) Overlaps(o LineSpan) bool {
	return s.Start <= o.End && o.Start <= s.End
}

// Overlap returns the number of shared lines.
func (s LineSpan) Overlap(o LineSpan) int {
	lo, hi := max(s.Start, o.Start), min(s.End, o.End)
	if hi < lo {
		return 0
	}
	return hi - lo + 1
}

// UserFields returns a copy of the scene's user-editable fields.
func (s Scene) UserFields() UserFields {
	return UserFields{IntExt: s.IntExt, Location: s.Location, TimeOfDay: s.TimeOfDay, Elements: s.Elements.Clone()}
}

// SetUserFields overwrites the scene's user-editable fields with a copy of u.
func (s *Scene) SetUserFields(u UserFields) {
	s.IntExt = u.IntExt
	s.Location = u.Location
	s.TimeOfDay = u.TimeOfDay
	s.Elements = u.Elements.Clone()
}

// HeadingKey returns the slugline triple of the scene's current fields.
func (s Scene) HeadingKey() HeadingKey {
	return HeadingKey{IntExt: s.IntExt, Location: s.Location, TimeOfDay: s.TimeOfDay}
}

// HeadingKey returns the slugline triple of the fields.
func (u UserFields) HeadingKey() HeadingKey {
	return HeadingKey{IntExt: u.IntExt, Location: u.Location, TimeOfDay: u.TimeOfDay}
}

// Equal compares field by field; element sets compare as sets.
func (u UserFields) Equal(o UserFields) bool {
	return u.IntExt == o.IntExt && u.Location == o.Location && u.TimeOfDay == o.TimeOfDay && u.Elements.Equal(o.Elements)
}

// Clone returns a deep copy of the scene.
func (s Scene) Clone() Scene {
	c := s
	c.Cast = slices.Clone(s.Cast)
	c.Elements = s.Elements.Clone()
	c.ReviewNotes = slices.Clone(s.ReviewNotes)
	if s.Base != nil {
		b := *s.Base
		b.Elements = s.Base.Elements.Clone()
		c.Base = &b
	}
	return c
}

// Equal reports whether two scenes carry the same content, revision included.
func (s Scene) Equal(o Scene) bool {
	if s.Number != o.Number || s.Synopsis != o.Synopsis || s.Span != o.Span || s.Pages != o.Pages ||
		s.Revision != o.Revision || s.Origin != o.Origin || s.NeedsReview != o.NeedsReview || s.Orphaned != o.Orphaned {
		return false
	}
	if !s.UserFields().Equal(o.UserFields()) {
		return false
	}
	if !slices.Equal(s.Cast, o.Cast) || !slices.Equal(s.ReviewNotes, o.ReviewNotes) {
		return false
	}
	switch {
	case s.Base == nil && o.Base == nil:
		return true
	case s.Base == nil || o.Base == nil:
		return false
	default:
		return s.Base.Equal(*o.Base)
	}
}
