/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ledger

import "sceneledger/internal/domain"

// Merge folds a freshly parsed scene (theirs) into a ledger scene (mine).
//
// The merge base is mine.Base, the user-set fields as last parsed. A
// parsed-only scene is replaced outright. For an edited scene each user-set
// field keeps mine when it differs from the base and takes theirs otherwise;
// element sets merge as theirs ∪ (mine − base) − (base − mine). Auto-derived
// fields always come from theirs.
//
// The result keeps mine's number and revision; the caller decides whether the
// revision moves.
func Merge(mine, theirs domain.Scene) domain.Scene {
	out := theirs.Clone()
	out.Number = mine.Number
	out.Revision = mine.Revision
	out.Orphaned = false
	parsed := theirs.UserFields()
	out.Base = &parsed

	if mine.Origin == domain.OriginParsedOnly {
		out.Origin = domain.OriginParsedOnly
		return out
	}

	base := mine.UserFields()
	if mine.Base != nil {
		base = *mine.Base
	}
	out.SetUserFields(MergeFields(base, mine.UserFields(), parsed))
	out.Origin = domain.OriginParsedAndEdited
	return out
}

// MergeFields is the three-way merge of the user-set fields.
func MergeFields(base, mine, theirs domain.UserFields) domain.UserFields {
	out := domain.UserFields{
		IntExt:    pick(base.IntExt, mine.IntExt, theirs.IntExt),
		Location:  pick(base.Location, mine.Location, theirs.Location),
		TimeOfDay: pick(base.TimeOfDay, mine.TimeOfDay, theirs.TimeOfDay),
	}
	for _, c := range domain.Categories {
		for _, tag := range theirs.Elements.Tags(c) {
			if base.Elements.Has(c, tag) && !mine.Elements.Has(c, tag) {
				continue // removed by hand
			}
			out.Elements.Add(c, tag)
		}
		for _, tag := range mine.Elements.Tags(c) {
			if !base.Elements.Has(c, tag) {
				out.Elements.Add(c, tag) // added by hand
			}
		}
	}
	return out
}

func pick[T comparable](base, mine, theirs T) T {
	if mine != base {
		return mine
	}
	return theirs
}

// changed reports whether merged differs from before in anything but revision.
func changed(before, merged domain.Scene) bool {
	merged.Revision = before.Revision
	return !merged.Equal(before)
}
