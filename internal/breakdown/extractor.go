/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package breakdown derives scene fields from a segmented screenplay: the
// cast present, breakdown elements tagged from a keyword lexicon, and a short
// synopsis. Tags are best effort; only evidence found in the text is added.
package breakdown

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"sceneledger/internal/domain"
	"sceneledger/internal/screenplay"
)

// DefaultSynopsisMax bounds the synopsis length in runes.
const DefaultSynopsisMax = 120

// Review notes raised by the extractor.
const (
	NoteMalformedHeading = "line %d looks like a scene heading but has no location"
	NoteUnclassified     = "line %d could not be decoded"
)

// Roster holds every character name cued anywhere in a document, longest
// first so that "DR. WEBB" wins over "WEBB".
type Roster struct {
	names []string
}

// NewRoster collects the cue names of a classified document.
func NewRoster(roles []screenplay.LineRole) *Roster {
	seen := map[string]bool{}
	r := &Roster{}
	for _, role := range roles {
		if role.Kind == screenplay.RoleCharacterCue && role.Name != "" && !seen[role.Name] {
			seen[role.Name] = true
			r.names = append(r.names, role.Name)
		}
	}
	sort.SliceStable(r.names, func(i, j int) bool { return len(r.names[i]) > len(r.names[j]) })
	return r
}

// Names returns the roster names, longest first.
func (r *Roster) Names() []string { return r.names }

// mentions returns roster names written in capitals in text, in order of
// appearance. Overlapping hits go to the longer name.
func (r *Roster) mentions(text string) []string {
	type hit struct {
		pos  int
		name string
	}
	var hits []hit
	taken := make([]bool, len(text))
	for _, name := range r.names {
		for from := 0; from < len(text); {
			i := strings.Index(text[from:], name)
			if i < 0 {
				break
			}
			start, end := from+i, from+i+len(name)
			from = start + 1
			if !wordBoundary(text, start, end) || anyTaken(taken[start:end]) {
				continue
			}
			for k := start; k < end; k++ {
				taken[k] = true
			}
			hits = append(hits, hit{pos: start, name: name})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}

func wordBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

func anyTaken(b []bool) bool {
	for _, v := range b {
		if v {
			return true
		}
	}
	return false
}

// Extractor turns a scene span into a partial Scene. Revision, origin and the
// page estimate are filled in later by the pipeline and the ledger.
type Extractor struct {
	Lexicon     *Lexicon
	SynopsisMax int
}

// NewExtractor returns an extractor using lex, or the default lexicon when
// lex is nil.
func NewExtractor(lex *Lexicon, synopsisMax int) *Extractor {
	if lex == nil {
		lex = DefaultLexicon()
	}
	if synopsisMax <= 0 {
		synopsisMax = DefaultSynopsisMax
	}
	return &Extractor{Lexicon: lex, SynopsisMax: synopsisMax}
}

// Extract derives the scene for span. roles is the whole classified document;
// roster may be nil, in which case only cue names count as cast.
func (e *Extractor) Extract(span screenplay.Span, roles []screenplay.LineRole, roster *Roster) domain.Scene {
	sc := domain.Scene{
		Number: span.Number,
		Span:   span.Lines,
		Origin: domain.OriginParsedOnly,
	}
	if h := span.Heading; h != nil {
		sc.IntExt, sc.Location, sc.TimeOfDay = h.IntExt, h.Location, h.TimeOfDay
	}
	notes := append([]string(nil), span.Notes...)

	var cast castList
	var synopsis string
	for i := span.Lines.Start; i <= span.Lines.End && i < len(roles); i++ {
		r := roles[i]
		switch r.Kind {
		case screenplay.RoleCharacterCue:
			cast.add(r.Name)
		case screenplay.RoleAction:
			if r.MalformedHeading {
				notes = append(notes, fmt.Sprintf(NoteMalformedHeading, i+1))
				continue
			}
			if roster != nil {
				for _, n := range roster.mentions(r.Text) {
					cast.add(n)
				}
			}
			if synopsis == "" {
				synopsis = Synopsis(r.Text, e.SynopsisMax)
			}
			e.Lexicon.Tag(r.Text, &sc.Elements)
		case screenplay.RoleParenthetical:
			e.Lexicon.Tag(r.Text, &sc.Elements)
		case screenplay.RoleUnclassified:
			notes = append(notes, fmt.Sprintf(NoteUnclassified, i+1))
		}
	}

	sc.Cast = cast.names
	for _, n := range sc.Cast {
		sc.Elements.Add(domain.CategoryCast, n)
	}
	if sc.Location != "" {
		sc.Elements.Add(domain.CategoryLocation, sc.Location)
	}
	sc.Synopsis = synopsis
	if len(notes) > 0 {
		sc.NeedsReview = true
		sc.ReviewNotes = notes
	}
	return sc
}

// castList is an insertion-ordered set.
type castList struct {
	names []string
	seen  map[string]bool
}

func (c *castList) add(name string) {
	if name == "" || c.seen[name] {
		return
	}
	if c.seen == nil {
		c.seen = map[string]bool{}
	}
	c.seen[name] = true
	c.names = append(c.names, name)
}

// abbreviations never end a sentence.
var abbreviations = map[string]bool{
	"DR": true, "MR": true, "MRS": true, "MS": true, "ST": true, "JR": true, "SR": true,
	"PROF": true, "SGT": true, "LT": true, "CAPT": true, "VS": true, "ETC": true,
}

// Synopsis returns the first sentence of text, cut to max runes with a
// trailing ellipsis when longer.
func Synopsis(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	s := firstSentence(text)
	if max > 0 && utf8.RuneCountInString(s) > max {
		rs := []rune(s)
		s = strings.TrimRightFunc(string(rs[:max-1]), unicode.IsSpace) + "…"
	}
	return s
}

func firstSentence(s string) string {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(s) && s[i+1] != ' ' {
			continue
		}
		if c == '.' && isAbbreviation(s[:i]) {
			continue
		}
		return s[:i+1]
	}
	return s
}

func isAbbreviation(before string) bool {
	word := before
	if j := strings.LastIndexFunc(before, func(r rune) bool { return !unicode.IsLetter(r) }); j >= 0 {
		_, w := utf8.DecodeRuneInString(before[j:])
		word = before[j+w:]
	}
	if utf8.RuneCountInString(word) == 1 {
		return true
	}
	return abbreviations[strings.ToUpper(word)]
}
