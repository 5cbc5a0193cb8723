/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package screenplay

import (
	"fmt"
	"log/slog"
	"strconv"

	"sceneledger/internal/domain"
	applog "sceneledger/internal/log"
)

// Review notes raised by the segmenter.
const (
	NoteNoHeadings      = "no scene headings found; whole document treated as one scene"
	NoteEmptyBody       = "scene heading has no content before the next heading"
	NoteDuplicateNumber = "duplicate scene number %q renumbered to %q"
)

// Segment groups classified lines into scene spans. Every scene heading opens
// a span that runs up to the line before the next heading. Text before the
// first heading is not part of any scene. A document without headings yields
// one implicit scene numbered "1". A document with no content yields nil.
func Segment(roles []LineRole) []Span {
	first, content := -1, false
	for i, r := range roles {
		if r.Kind == RoleSceneHeading && first < 0 {
			first = i
		}
		if !r.Is(RoleBlank, RolePageBreak) {
			content = true
		}
	}
	if !content {
		return nil
	}
	if first < 0 {
		return []Span{{
			Number: "1",
			Lines:  domain.LineSpan{Start: 0, End: len(roles) - 1},
			Notes:  []string{NoteNoHeadings},
		}}
	}
	if first > 0 && hasContent(roles[:first]) {
		applog.WithOperation(applog.WithComponent("screenplay"), "segment").Debug("dropping preamble before first scene heading",
			slog.Int("lines", first))
	}

	var spans []Span
	for i := first; i < len(roles); i++ {
		if roles[i].Kind != RoleSceneHeading {
			continue
		}
		if n := len(spans); n > 0 {
			spans[n-1].Lines.End = i - 1
		}
		h := *roles[i].Heading
		spans = append(spans, Span{Number: h.Number, Explicit: h.Number != "", Heading: &h, Lines: domain.LineSpan{Start: i, End: len(roles) - 1}})
	}
	for i := range spans {
		if !hasContent(roles[spans[i].Lines.Start+1 : spans[i].Lines.End+1]) {
			spans[i].Notes = append(spans[i].Notes, NoteEmptyBody)
		}
	}
	assignNumbers(spans)
	return spans
}

func hasContent(roles []LineRole) bool {
	for _, r := range roles {
		if !r.Is(RoleBlank, RolePageBreak) {
			return true
		}
	}
	return false
}

// assignNumbers keeps embedded numbers, letters duplicates apart and numbers
// the rest after the highest numeric label seen so far.
func assignNumbers(spans []Span) {
	used := map[string]bool{}
	isUsed := func(s string) bool { return used[s] }
	for i := range spans {
		if !spans[i].Explicit {
			continue
		}
		if used[spans[i].Number] {
			old := spans[i].Number
			spans[i].Number, _ = domain.SuffixAfter(old, "", isUsed)
			spans[i].Notes = append(spans[i].Notes, fmt.Sprintf(NoteDuplicateNumber, old, spans[i].Number))
		}
		used[spans[i].Number] = true
	}
	highest := 0
	for i := range spans {
		if spans[i].Explicit {
			if n, _, ok := domain.SplitSceneNumber(spans[i].Number); ok && n > highest {
				highest = n
			}
			continue
		}
		n := highest + 1
		for isUsed(strconv.Itoa(n)) {
			n++
		}
		spans[i].Number = strconv.Itoa(n)
		used[spans[i].Number] = true
		highest = n
	}
}
