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
	"strings"
)

// IntExt tells whether a scene plays inside, outside or both.
type IntExt int

const (
	IntExtUnspecified IntExt = iota
	Interior
	Exterior
	InteriorExterior
)

var intExtNames = [...]string{"UNSPECIFIED", "INT", "EXT", "INT_EXT"}

func (v IntExt) String() string {
	if v < 0 || int(v) >= len(intExtNames) {
		return intExtNames[0]
	}
	return intExtNames[v]
}

// ParseIntExt accepts the canonical names (case-insensitive).
func ParseIntExt(s string) (IntExt, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range intExtNames {
		if n == s {
			return IntExt(i), nil
		}
	}
	return IntExtUnspecified, fmt.Errorf("unknown int/ext %q", s)
}

func (v IntExt) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *IntExt) UnmarshalText(b []byte) error {
	p, err := ParseIntExt(string(b))
	if err != nil {
		return err
	}
	*v = p
	return nil
}

// TimeOfDay is the controlled time-of-day vocabulary of a slugline.
type TimeOfDay int

const (
	TimeUnspecified TimeOfDay = iota
	Day
	Night
	Dawn
	Dusk
	Continuous
	Later
)

var timeNames = [...]string{"UNSPECIFIED", "DAY", "NIGHT", "DAWN", "DUSK", "CONTINUOUS", "LATER"}

func (t TimeOfDay) String() string {
	if t < 0 || int(t) >= len(timeNames) {
		return timeNames[0]
	}
	return timeNames[t]
}

// ParseTimeOfDay accepts the canonical names (case-insensitive).
// Synonyms such as MORNING are folded by the screenplay parser, not here.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range timeNames {
		if n == s {
			return TimeOfDay(i), nil
		}
	}
	return TimeUnspecified, fmt.Errorf("unknown time of day %q", s)
}

func (t TimeOfDay) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	p, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = p
	return nil
}

// Origin records who produced the current state of a scene.
type Origin int

const (
	OriginParsedOnly Origin = iota
	OriginManuallyEdited
	OriginParsedAndEdited
)

var originNames = [...]string{"ParsedOnly", "ManuallyEdited", "ParsedAndEdited"}

func (o Origin) String() string {
	if o < 0 || int(o) >= len(originNames) {
		return originNames[0]
	}
	return originNames[o]
}

// Edited reports whether a user has touched the scene.
func (o Origin) Edited() bool { return o != OriginParsedOnly }

func (o Origin) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Origin) UnmarshalText(b []byte) error {
	s := strings.TrimSpace(string(b))
	for i, n := range originNames {
		if strings.EqualFold(n, s) {
			*o = Origin(i)
			return nil
		}
	}
	return fmt.Errorf("unknown origin %q", s)
}

// Category is a breakdown element category.
type Category int

const (
	CategoryCast Category = iota
	CategoryLocation
	CategoryWardrobe
	CategoryVehicle
	CategorySFX
	CategoryMusic
	CategoryCamera
	CategoryArt
)

// Categories lists every breakdown category in display order.
var Categories = []Category{
	CategoryCast, CategoryLocation, CategoryWardrobe, CategoryVehicle,
	CategorySFX, CategoryMusic, CategoryCamera, CategoryArt,
}

var categoryNames = [...]string{"CAST", "LOCATION", "WARDROBE", "VEHICLE", "SFX", "MUSIC", "CAMERA", "ART"}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory accepts the canonical names (case-insensitive).
func ParseCategory(s string) (Category, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, n := range categoryNames {
		if n == s {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown breakdown category %q", s)
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Category) UnmarshalText(b []byte) error {
	p, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = p
	return nil
}
