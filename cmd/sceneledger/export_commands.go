/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sceneledger/internal/ledger"
	"sceneledger/internal/storage"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.json>",
		Short: "Write the ledger to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(cmd.Context(), func(_ *openStore, l *ledger.Ledger) error {
				snap := l.Snapshot()
				if err := storage.ExportJSON(args[0], snap); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d scenes to %s\n", len(snap.Scenes), args[0])
				return nil
			})
		},
	}
}

func newRestoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file.json>",
		Short: "Replace the ledger with a JSON export",
		Long:  "Replace the ledger with a JSON export. The file is validated first; edit history is dropped.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := storage.ImportJSON(args[0])
			if err != nil {
				return err
			}
			st, l, err := ctx.loadLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			if err := l.Restore(snap); err != nil {
				return err
			}
			if err := l.Save(cmd.Context(), st); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d scenes (generation %d)\n", len(snap.Scenes), snap.Generation)
			return nil
		},
	}
}
