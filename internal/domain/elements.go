/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Elements maps a breakdown category to a sorted set of tags.
// Empty categories are never stored.
type Elements map[Category][]string

// Add inserts tag into the category set. Blank tags are ignored.
func (e *Elements) Add(c Category, tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}
	if *e == nil {
		*e = Elements{}
	}
	set := (*e)[c]
	i, found := slices.BinarySearch(set, tag)
	if found {
		return
	}
	(*e)[c] = slices.Insert(set, i, tag)
}

// Remove deletes tag from the category set.
func (e Elements) Remove(c Category, tag string) {
	set := e[c]
	i, found := slices.BinarySearch(set, tag)
	if !found {
		return
	}
	set = slices.Delete(set, i, i+1)
	if len(set) == 0 {
		delete(e, c)
		return
	}
	e[c] = set
}

// Has reports whether the category contains tag.
func (e Elements) Has(c Category, tag string) bool {
	_, found := slices.BinarySearch(e[c], tag)
	return found
}

// Tags returns the sorted tags of a category.
func (e Elements) Tags(c Category) []string { return e[c] }

// Len returns the total number of tags across categories.
func (e Elements) Len() int {
	n := 0
	for _, set := range e {
		n += len(set)
	}
	return n
}

// Clone returns a deep copy; nil stays nil.
func (e Elements) Clone() Elements {
	if e == nil {
		return nil
	}
	out := make(Elements, len(e))
	for c, set := range e {
		if len(set) > 0 {
			out[c] = slices.Clone(set)
		}
	}
	return out
}

// Equal compares two element maps as sets; nil equals empty.
func (e Elements) Equal(o Elements) bool {
	for _, c := range Categories {
		if !slices.Equal(e[c], o[c]) {
			return false
		}
	}
	return true
}

// Eighths is a page length expressed in eighths of a page.
type Eighths int

// String renders the industry notation: "2 3/8", "3/8", "1", "0".
func (p Eighths) String() string {
	whole, rest := int(p)/8, int(p)%8
	switch {
	case rest == 0:
		return strconv.Itoa(whole)
	case whole == 0:
		return fmt.Sprintf("%d/8", rest)
	default:
		return fmt.Sprintf("%d %d/8", whole, rest)
	}
}

// ParseEighths reads the notation produced by String.
func ParseEighths(s string) (Eighths, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty page length")
	}
	var whole, num int
	parts := strings.Fields(s)
	switch len(parts) {
	case 1:
		if strings.Contains(parts[0], "/") {
			n, err := parseFraction(parts[0])
			if err != nil {
				return 0, err
			}
			num = n
		} else {
			w, err := strconv.Atoi(parts[0])
			if err != nil {
				return 0, fmt.Errorf("page length %q: %w", s, err)
			}
			whole = w
		}
	case 2:
		w, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("page length %q: %w", s, err)
		}
		n, err := parseFraction(parts[1])
		if err != nil {
			return 0, err
		}
		whole, num = w, n
	default:
		return 0, fmt.Errorf("page length %q: too many parts", s)
	}
	if whole < 0 {
		return 0, fmt.Errorf("page length %q: negative", s)
	}
	return Eighths(whole*8 + num), nil
}

func parseFraction(s string) (int, error) {
	n, d, ok := strings.Cut(s, "/")
	if !ok || strings.TrimSpace(d) != "8" {
		return 0, fmt.Errorf("page fraction %q: want n/8", s)
	}
	v, err := strconv.Atoi(n)
	if err != nil || v < 0 || v > 7 {
		return 0, fmt.Errorf("page fraction %q: numerator out of range", s)
	}
	return v, nil
}

func (p Eighths) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Eighths) UnmarshalText(b []byte) error {
	v, err := ParseEighths(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
