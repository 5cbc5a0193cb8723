/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"slices"
	"sort"
	"testing"
)

func TestSceneJSONRoundTrip(t *testing.T) {
	s := Scene{
		Number:    "4A",
		IntExt:    InteriorExterior,
		Location:  "CAR",
		TimeOfDay: Night,
		Synopsis:  "They drive.",
		Cast:      []string{"MARCUS", "ELENA"},
		Span:      LineSpan{Start: 10, End: 20},
		Pages:     Eighths(19),
		Revision:  3,
		Origin:    OriginParsedAndEdited,
		Base:      &UserFields{IntExt: Interior, Location: "CAR", TimeOfDay: Night},
	}
	s.Elements.Add(CategoryVehicle, "car")
	s.Elements.Add(CategoryCast, "MARCUS")

	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal map: %v", err)
	}
	if m["intExt"] != "INT_EXT" || m["timeOfDay"] != "NIGHT" || m["pageEstimate"] != "2 3/8" || m["origin"] != "ParsedAndEdited" {
		t.Fatalf("unexpected enum encoding: %s", b)
	}
	var got Scene
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Equal(s) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, s)
	}
}

func TestEighthsStringAndParse(t *testing.T) {
	cases := map[Eighths]string{0: "0", 1: "1/8", 8: "1", 19: "2 3/8", 16: "2"}
	for v, want := range cases {
		if got := v.String(); got != want {
			t.Fatalf("Eighths(%d).String() = %q, want %q", int(v), got, want)
		}
		back, err := ParseEighths(want)
		if err != nil || back != v {
			t.Fatalf("ParseEighths(%q) = %d, %v", want, back, err)
		}
	}
	if _, err := ParseEighths("1 9/8"); err == nil {
		t.Fatalf("expected error for numerator out of range")
	}
}

func TestElementsSetSemantics(t *testing.T) {
	var e Elements
	e.Add(CategorySFX, "smoke")
	e.Add(CategorySFX, "gun")
	e.Add(CategorySFX, "smoke")
	e.Add(CategorySFX, " ")
	if got := e.Tags(CategorySFX); !slices.Equal(got, []string{"gun", "smoke"}) {
		t.Fatalf("unexpected tags: %v", got)
	}
	e.Remove(CategorySFX, "gun")
	e.Remove(CategorySFX, "smoke")
	if _, ok := e[CategorySFX]; ok {
		t.Fatalf("empty category should be removed")
	}
	if !e.Equal(nil) {
		t.Fatalf("empty elements should equal nil")
	}
}

func TestCompareSceneNumbers(t *testing.T) {
	in := []string{"10", "5", "4B", "4", "A1", "4A", "1"}
	sort.Slice(in, func(i, j int) bool { return CompareSceneNumbers(in[i], in[j]) < 0 })
	want := []string{"1", "4", "4A", "4B", "5", "10", "A1"}
	if !slices.Equal(in, want) {
		t.Fatalf("sorted = %v, want %v", in, want)
	}
}

func TestNumberAfter(t *testing.T) {
	used := map[string]bool{"1": true, "4": true, "4A": true, "5": true}
	isUsed := func(s string) bool { return used[s] }
	if got := NumberAfter("4", "5", 5, isUsed); got != "4B" {
		t.Fatalf("NumberAfter(4,5) = %q, want 4B", got)
	}
	if got := NumberAfter("5", "", 5, isUsed); got != "6" {
		t.Fatalf("NumberAfter(5,'') = %q, want 6", got)
	}
	if got := NumberAfter("1", "4", 5, isUsed); got != "1A" {
		t.Fatalf("NumberAfter(1,4) = %q, want 1A", got)
	}
	if got := NumberAfter("", "1", 5, isUsed); got != "0A" {
		t.Fatalf("NumberAfter('',1) = %q, want 0A", got)
	}
	if got := NumberAfter("4A", "5", 5, isUsed); got != "4B" {
		t.Fatalf("NumberAfter(4A,5) = %q, want 4B", got)
	}
	if got := NumberAfter("4A", "4B", 5, isUsed); got != "4AA" {
		t.Fatalf("NumberAfter(4A,4B) = %q, want 4AA", got)
	}
}

func TestSuffixAfterMatchesSegmenterLabels(t *testing.T) {
	used := map[string]bool{"4": true, "4A": true, "4B": true}
	isUsed := func(s string) bool { return used[s] }
	cases := []struct{ prev, before, want string }{
		{"4", "", "4C"},
		{"4A", "", "4C"},
		{"7", "", "7A"},
		{"", "", "0A"},
		{"4", "4B", "4AA"},
		{"4", "4A", ""},
	}
	for _, c := range cases {
		got, ok := SuffixAfter(c.prev, c.before, isUsed)
		if got != c.want || ok != (c.want != "") {
			t.Fatalf("SuffixAfter(%q, %q) = %q, %v, want %q", c.prev, c.before, got, ok, c.want)
		}
	}
}

func TestLineSpanOverlap(t *testing.T) {
	a := LineSpan{Start: 0, End: 10}
	b := LineSpan{Start: 10, End: 15}
	if !a.Overlaps(b) || a.Overlap(b) != 1 {
		t.Fatalf("expected one shared line")
	}
	if a.Overlaps(LineSpan{Start: 11, End: 12}) {
		t.Fatalf("disjoint spans reported overlapping")
	}
}
