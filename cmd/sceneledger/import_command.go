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
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sceneledger/internal/importer"
	"sceneledger/internal/ledger"
	applog "sceneledger/internal/log"
)

// keepScriptSnapshots bounds the imported script texts kept per ledger.
const keepScriptSnapshots = 20

func newImportCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "import <script>",
		Short: "Parse a screenplay and reconcile it into the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			p, err := ctx.pipeline()
			if err != nil {
				return err
			}
			rctx := applog.WithScript(cmd.Context(), args[0])

			if dryRun {
				doc, err := p.Parse(rctx, string(data))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, doc.Scenes)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(sceneHeaders, sceneRows(doc.Scenes), sceneAligns))
				return nil
			}

			return ctx.withLedger(rctx, func(st *openStore, l *ledger.Ledger) error {
				res, doc, err := p.Import(rctx, string(data), l)
				if err != nil {
					return err
				}
				if len(doc.Scenes) > 0 {
					if err := st.RecordImport(rctx, doc.Record(res)); err != nil {
						return err
					}
					if err := keepScript(cmd, st, doc); err != nil {
						return err
					}
				}
				if asJSON {
					return writeJSON(cmd, res)
				}
				printResult(cmd, res)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse only; do not touch the ledger")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func keepScript(cmd *cobra.Command, st *openStore, doc *importer.ScriptDocument) error {
	if st.sqlite == nil {
		return nil
	}
	ctx := cmd.Context()
	if _, err := st.sqlite.SaveScriptSnapshot(ctx, doc.SourceHash, doc.Text(), doc.ParsedAt); err != nil {
		return err
	}
	n, err := st.sqlite.PruneOldScriptSnapshots(ctx, keepScriptSnapshots)
	if err != nil {
		return err
	}
	if n > 0 {
		applog.WithOperation(applog.WithComponent("cli"), "import").Debug("pruned script snapshots", slog.Int64("deleted", n))
	}
	return nil
}

func printResult(cmd *cobra.Command, res ledger.Result) {
	out := cmd.OutOrStdout()
	if !res.Changed() && len(res.Conflicts) == 0 {
		fmt.Fprintf(out, "No changes (%d scenes unchanged)\n", res.Unchanged)
		return
	}
	var rows [][]string
	for _, sc := range res.Created {
		rows = append(rows, []string{"created", sc.Number, heading(sc)})
	}
	for _, sc := range res.Updated {
		rows = append(rows, []string{"updated", sc.Number, heading(sc)})
	}
	for _, sc := range res.Orphaned {
		rows = append(rows, []string{"orphaned", sc.Number, heading(sc)})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Change", "#", "Heading"}, rows, []columnAlignment{alignLeft, alignRight}))
	}
	fmt.Fprintf(out, "%d created, %d updated, %d orphaned, %d unchanged\n",
		len(res.Created), len(res.Updated), len(res.Orphaned), res.Unchanged)
	if len(res.Conflicts) > 0 {
		fmt.Fprintf(out, "%d conflicts need a decision; see `sceneledger conflicts`\n", len(res.Conflicts))
	}
}
