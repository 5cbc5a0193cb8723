/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists the scene ledger.
// SQLiteStore keeps the ledger, conflicts, import history and script snapshots in <project>/.sceneledger/ledger.sqlite,
// with an FTS5 index over scenes for search. One process at a time may hold the database.
// ExportJSON and ImportJSON move a ledger in and out as schema-checked JSON with transactional writes and timestamped backups.
package storage
