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
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"sceneledger/internal/domain"
)

// Slugline grammar:
//
//	[number[.]] INT|EXT|INT./EXT.|EXT./INT.|I/E [.] [sep] LOCATION [sep TIME] [#number#]
//
// sep is " - ", an em or en dash, or a run of two or more spaces.
var (
	reHeading        = regexp.MustCompile(`(?i)^(?:(\d+[A-Z]{0,3})\.?\s+)?(INT\.?\s*/\s*EXT|EXT\.?\s*/\s*INT|I\s*/\s*E|INT|EXT)\b(\.?)(.*)$`)
	reTrailingNumber = regexp.MustCompile(`\s*#([0-9A-Za-z.\-]+)#\s*$`)
	reSeparator      = regexp.MustCompile(`\s*[—–]\s*|\s+-+\s+|\s{2,}`)
	reLeadSeparator  = regexp.MustCompile(`^(?:\s*[—–]|\s+-+\s|\s{2,})`)
)

var upper = cases.Upper(language.Und)

// timeVocabulary folds common slugline time phrases into the closed set.
var timeVocabulary = map[string]domain.TimeOfDay{
	"DAY": domain.Day, "MORNING": domain.Day, "AFTERNOON": domain.Day, "NOON": domain.Day,
	"LATE AFTERNOON": domain.Day, "EARLY AFTERNOON": domain.Day,
	"NIGHT": domain.Night, "MIDNIGHT": domain.Night, "LATE NIGHT": domain.Night,
	"DAWN": domain.Dawn, "SUNRISE": domain.Dawn, "EARLY MORNING": domain.Dawn,
	"DUSK": domain.Dusk, "SUNSET": domain.Dusk, "EVENING": domain.Dusk, "TWILIGHT": domain.Dusk, "MAGIC HOUR": domain.Dusk,
	"CONTINUOUS": domain.Continuous, "CONT": domain.Continuous, "CONT'D": domain.Continuous,
	"SAME TIME": domain.Continuous, "SAME": domain.Continuous,
	"LATER": domain.Later, "MOMENTS LATER": domain.Later, "A MOMENT LATER": domain.Later,
	"SECONDS LATER": domain.Later, "MINUTES LATER": domain.Later, "HOURS LATER": domain.Later,
}

// timePhrases holds the vocabulary keys, longest first.
var timePhrases = func() []string {
	out := make([]string, 0, len(timeVocabulary))
	for k := range timeVocabulary {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

// ParseHeading parses a trimmed line as a slugline. resembles is true when the
// line starts like a heading; the heading is only usable when Location is set.
// A line with lower-case letters only counts when INT/EXT is marked off by a
// period, a slash or a separator, so "Int he morning" stays prose.
func ParseHeading(t string) (h Heading, resembles bool) {
	m := reHeading.FindStringSubmatch(t)
	if m == nil {
		return Heading{}, false
	}
	rest := m[4]
	if strings.ToUpper(t) != t && m[3] == "" && !strings.Contains(m[2], "/") && !reLeadSeparator.MatchString(rest) {
		return Heading{}, false
	}
	h.Number = strings.ToUpper(m[1])
	h.IntExt = intExtOf(m[2])
	if loc := reTrailingNumber.FindStringSubmatchIndex(rest); loc != nil {
		if h.Number == "" {
			h.Number = strings.ToUpper(rest[loc[2]:loc[3]])
		}
		rest = rest[:loc[0]]
	}
	rest = strings.TrimLeft(strings.TrimSpace(rest), "-—–. ")
	h.Location, h.TimeOfDay = splitLocationTime(rest)
	return h, true
}

func intExtOf(tok string) domain.IntExt {
	t := strings.ToUpper(strings.NewReplacer(".", "", " ", "", "\t", "").Replace(tok))
	switch t {
	case "INT":
		return domain.Interior
	case "EXT":
		return domain.Exterior
	default:
		return domain.InteriorExterior
	}
}

// splitLocationTime separates the location from trailing time-of-day
// segments. When several trailing segments are vocabulary ("DAY - CONTINUOUS")
// the leftmost one wins.
func splitLocationTime(rest string) (string, domain.TimeOfDay) {
	var segs []string
	for _, s := range reSeparator.Split(rest, -1) {
		if s = strings.TrimSpace(s); s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return "", domain.TimeUnspecified
	}
	tod := domain.TimeUnspecified
	n := len(segs)
	for n > 1 {
		t, ok := lookupTime(segs[n-1])
		if !ok {
			break
		}
		tod = t
		n--
	}
	if tod == domain.TimeUnspecified {
		// "KITCHEN DAY" without a separator
		last := strings.ToUpper(segs[n-1])
		for _, p := range timePhrases {
			if strings.HasSuffix(last, " "+p) {
				tod = timeVocabulary[p]
				segs[n-1] = strings.TrimSpace(segs[n-1][:len(segs[n-1])-len(p)])
				break
			}
		}
	}
	if n == 1 {
		if _, ok := lookupTime(segs[0]); ok && tod == domain.TimeUnspecified {
			// the only segment is a time word: no location
			return "", domain.TimeUnspecified
		}
	}
	return NormalizeLocation(strings.Join(segs[:n], " - ")), tod
}

func lookupTime(seg string) (domain.TimeOfDay, bool) {
	k := strings.Trim(strings.ToUpper(seg), " .()")
	k = strings.Join(strings.Fields(k), " ")
	t, ok := timeVocabulary[k]
	return t, ok
}

// NormalizeLocation upper-cases, collapses whitespace and drops trailing
// punctuation.
func NormalizeLocation(s string) string {
	s = strings.Join(strings.Fields(upper.String(s)), " ")
	return strings.TrimRight(s, " .,:;-")
}

// FormatHeading renders the canonical slugline for h, without scene number.
func FormatHeading(h Heading) string {
	var b strings.Builder
	switch h.IntExt {
	case domain.Exterior:
		b.WriteString("EXT. ")
	case domain.InteriorExterior:
		b.WriteString("INT./EXT. ")
	default:
		b.WriteString("INT. ")
	}
	b.WriteString(h.Location)
	if h.TimeOfDay != domain.TimeUnspecified {
		b.WriteString(" - ")
		b.WriteString(h.TimeOfDay.String())
	}
	return b.String()
}
