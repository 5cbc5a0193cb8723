/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ledger

import "errors"

var (
	// ErrLedgerLocked is returned when a write is attempted while another is in
	// flight. Callers retry.
	ErrLedgerLocked = errors.New("ledger is locked by another operation")
	// ErrSceneNotFound is returned for unknown scene numbers.
	ErrSceneNotFound = errors.New("scene not found")
	// ErrDuplicateSceneNumber is returned when a scene number is already taken.
	ErrDuplicateSceneNumber = errors.New("duplicate scene number")
	// ErrConflictNotFound is returned for unknown or already resolved conflicts.
	ErrConflictNotFound = errors.New("conflict not found")
	// ErrInvalidDecision is returned when a decision does not fit its conflict.
	ErrInvalidDecision = errors.New("invalid conflict decision")
	// ErrInvalidScene is returned for scenes that cannot be stored.
	ErrInvalidScene = errors.New("invalid scene")
	// ErrNothingToUndo is returned when a scene has no edit history left.
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNothingToRedo is returned when a scene has no undone edits.
	ErrNothingToRedo = errors.New("nothing to redo")
)
