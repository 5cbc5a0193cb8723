/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package breakdown

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"sceneledger/internal/domain"
)

// Matcher finds breakdown tags in a line of text.
type Matcher interface {
	// Find returns the tags present in text, in order of appearance.
	Find(text string) []string
}

// KeywordMatcher matches a word or phrase case-insensitively on word
// boundaries, tolerating a plain "s"/"es" plural. The tag is the keyword
// itself in lower case.
type KeywordMatcher struct {
	Keyword string
	re      *regexp.Regexp
}

// NewKeywordMatcher compiles a keyword matcher.
func NewKeywordMatcher(keyword string) (*KeywordMatcher, error) {
	kw := strings.ToLower(strings.Join(strings.Fields(keyword), " "))
	if kw == "" {
		return nil, errors.New("empty keyword")
	}
	parts := strings.Split(kw, " ")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	re, err := regexp.Compile(`(?i)\b` + strings.Join(parts, `\s+`) + `(?:e?s)?\b`)
	if err != nil {
		return nil, err
	}
	return &KeywordMatcher{Keyword: kw, re: re}, nil
}

func (m *KeywordMatcher) Find(text string) []string {
	if m.re.MatchString(text) {
		return []string{m.Keyword}
	}
	return nil
}

// PatternMatcher tags every match of a regular expression with the lower-cased
// matched text. Lexicon entries prefixed with "re:" compile to it.
type PatternMatcher struct {
	re *regexp.Regexp
}

func (m *PatternMatcher) Find(text string) []string {
	var out []string
	for _, s := range m.re.FindAllString(text, -1) {
		out = append(out, strings.ToLower(strings.Join(strings.Fields(s), " ")))
	}
	return out
}

// Lexicon maps each keyword-driven breakdown category to an ordered list of
// matchers. CAST and LOCATION are derived from cues and sluglines and cannot
// be configured.
type Lexicon struct {
	entries map[domain.Category][]Matcher
}

// ErrDerivedCategory is returned for lexicon entries under CAST or LOCATION.
var ErrDerivedCategory = errors.New("category is derived and cannot carry keywords")

// NewLexicon compiles a category to keyword table.
func NewLexicon(table map[domain.Category][]string) (*Lexicon, error) {
	l := &Lexicon{entries: map[domain.Category][]Matcher{}}
	for _, c := range domain.Categories {
		words, ok := table[c]
		if !ok {
			continue
		}
		if c == domain.CategoryCast || c == domain.CategoryLocation {
			return nil, fmt.Errorf("%s: %w", c, ErrDerivedCategory)
		}
		for _, w := range words {
			m, err := compileEntry(w)
			if err != nil {
				return nil, fmt.Errorf("%s %q: %w", c, w, err)
			}
			l.entries[c] = append(l.entries[c], m)
		}
	}
	return l, nil
}

func compileEntry(w string) (Matcher, error) {
	if p, ok := strings.CutPrefix(w, "re:"); ok {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		return &PatternMatcher{re: re}, nil
	}
	return NewKeywordMatcher(w)
}

// Tag adds every tag found in text to elements.
func (l *Lexicon) Tag(text string, elements *domain.Elements) {
	if l == nil {
		return
	}
	for _, c := range domain.Categories {
		for _, m := range l.entries[c] {
			for _, tag := range m.Find(text) {
				elements.Add(c, tag)
			}
		}
	}
}

// Len returns the number of matchers across all categories.
func (l *Lexicon) Len() int {
	n := 0
	for _, ms := range l.entries {
		n += len(ms)
	}
	return n
}

// lexiconFile is the YAML layout:
//
//	categories:
//	  SFX: [gun, explosion, smoke]
//	  VEHICLE: [car, "re:\\bsquad cars?\\b"]
type lexiconFile struct {
	Categories map[string][]string `yaml:"categories"`
}

// ParseLexicon reads a YAML lexicon.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	table := map[domain.Category][]string{}
	for name, words := range f.Categories {
		c, err := domain.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("parse lexicon: %w", err)
		}
		table[c] = append(table[c], words...)
	}
	return NewLexicon(table)
}

// LoadLexicon reads a YAML lexicon file.
func LoadLexicon(path string) (*Lexicon, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLexicon(b)
}

var defaultTable = map[domain.Category][]string{
	domain.CategorySFX: {"gun", "gunshot", "gunfire", "explosion", "explodes", "smoke", "fire", "rain",
		"fog", "blood", "sparks", "lightning", "wind"},
	domain.CategoryVehicle: {"car", "van", "truck", "motorcycle", "sedan", "bus", "taxi", "cab",
		"helicopter", "boat", "bike", "ambulance", "police car"},
	domain.CategoryWardrobe: {"coat", "jacket", "suit", "dress", "hat", "uniform", "mask", "gloves",
		"boots", "scarf", "tie", "lab coat"},
	domain.CategoryMusic: {"music", "song", "band", "piano", "guitar", "jukebox", "singing", "hums"},
	domain.CategoryCamera: {"pov", "close up", "close on", "angle on", "slow motion", "aerial",
		"handheld", "steadicam", "crane shot", "tracking"},
	domain.CategoryArt: {"laptop", "switch", "screen", "device", "controls", "booth", "sign",
		"poster", "candle", "phone", "radio", "briefcase", "computer", "monitor", "desk"},
}

// DefaultLexicon returns the built-in English lexicon.
func DefaultLexicon() *Lexicon {
	l, err := NewLexicon(defaultTable)
	if err != nil {
		panic(err)
	}
	return l
}
