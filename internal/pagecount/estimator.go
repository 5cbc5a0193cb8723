/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pagecount estimates scene length in eighths of a page using the
// formatted-line-count method with fixed column widths.
package pagecount

import (
	"unicode/utf8"

	"sceneledger/internal/domain"
	"sceneledger/internal/screenplay"
)

// Defaults for a standard screenplay page.
const (
	DefaultLinesPerPage  = 55
	DefaultActionWidth   = 60
	DefaultDialogueWidth = 35
)

// Estimator converts classified lines into eighths. Zero fields take the
// defaults.
type Estimator struct {
	LinesPerPage  int
	ActionWidth   int
	DialogueWidth int
}

// New returns an estimator with the standard page geometry.
func New() Estimator {
	return Estimator{LinesPerPage: DefaultLinesPerPage, ActionWidth: DefaultActionWidth, DialogueWidth: DefaultDialogueWidth}
}

func (e Estimator) norm() Estimator {
	if e.LinesPerPage <= 0 {
		e.LinesPerPage = DefaultLinesPerPage
	}
	if e.ActionWidth <= 0 {
		e.ActionWidth = DefaultActionWidth
	}
	if e.DialogueWidth <= 0 {
		e.DialogueWidth = DefaultDialogueWidth
	}
	return e
}

// Units returns the formatted line count of one classified line.
func (e Estimator) Units(r screenplay.LineRole) int {
	e = e.norm()
	switch r.Kind {
	case screenplay.RoleAction:
		return wrapped(r.Text, e.ActionWidth)
	case screenplay.RoleDialogue:
		return wrapped(r.Text, e.DialogueWidth)
	case screenplay.RoleCharacterCue, screenplay.RoleParenthetical:
		return 1
	default:
		return 0
	}
}

func wrapped(text string, width int) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return (n + width - 1) / width
}

// Estimate returns the page length of the lines in span. Any scene with a
// line besides its heading, blanks and page breaks is at least 1/8, even when
// that line is a transition or unclassified text that counts no units.
func (e Estimator) Estimate(roles []screenplay.LineRole, span domain.LineSpan) domain.Eighths {
	units, content := 0, false
	for i := max(span.Start, 0); i <= span.End && i < len(roles); i++ {
		units += e.Units(roles[i])
		if !roles[i].Is(screenplay.RoleSceneHeading, screenplay.RoleBlank, screenplay.RolePageBreak) {
			content = true
		}
	}
	if p := e.FromUnits(units); p > 0 || !content {
		return p
	}
	return 1
}

// FromUnits rounds a line count to the nearest eighth of a page.
func (e Estimator) FromUnits(units int) domain.Eighths {
	if units <= 0 {
		return 0
	}
	lpp := e.norm().LinesPerPage
	v := (units*8 + lpp/2) / lpp
	if v < 1 {
		v = 1
	}
	return domain.Eighths(v)
}
