/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var scripts bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			if scripts {
				if st.sqlite == nil {
					return errors.New("script snapshots are kept by the sqlite driver only")
				}
				snaps, err := st.sqlite.ListScriptSnapshots(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, snaps)
				}
				rows := make([][]string, 0, len(snaps))
				for _, s := range snaps {
					rows = append(rows, []string{s.TS.Local().Format(time.DateTime), shortHash(s.Hash), fmt.Sprint(len(s.Text))})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Imported", "Hash", "Bytes"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
				return nil
			}

			recs, err := st.ListImports(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, recs)
			}
			if len(recs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No imports yet")
				return nil
			}
			rows := make([][]string, 0, len(recs))
			for _, r := range recs {
				rows = append(rows, []string{
					r.ParsedAt.Local().Format(time.DateTime), shortHash(r.SourceHash),
					fmt.Sprint(r.Scenes), fmt.Sprint(r.Created), fmt.Sprint(r.Updated), fmt.Sprint(r.Orphaned), fmt.Sprint(r.Conflicts),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Imported", "Hash", "Scenes", "Created", "Updated", "Orphaned", "Conflicts"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight}))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries")
	cmd.Flags().BoolVar(&scripts, "scripts", false, "List stored script texts instead of import runs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
