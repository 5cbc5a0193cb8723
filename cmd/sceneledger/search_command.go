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
	"strings"

	"github.com/spf13/cobra"

	"sceneledger/internal/storage"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var q storage.SearchQuery
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Search scenes by text, character, location or breakdown tag",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Text = strings.Join(args, " ")
			if strings.TrimSpace(q.Text) == "" && q.Character == "" && q.Location == "" && len(q.Tags) == 0 {
				return fmt.Errorf("search needs text or a --character, --location or --tag filter")
			}
			st, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			res, err := st.SearchScenes(cmd.Context(), q)
			if err != nil {
				return err
			}
			if asJSON {
				if res == nil {
					res = []storage.SearchResult{}
				}
				return writeJSON(cmd, res)
			}
			if len(res) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching scenes")
				return nil
			}
			rows := make([][]string, 0, len(res))
			for _, r := range res {
				rows = append(rows, []string{r.Number, heading(r.Scene), strings.Join(r.Scene.Cast, ", "), r.Snippet})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "Heading", "Cast", "Match"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}
	cmd.Flags().StringVar(&q.Character, "character", "", "Only scenes this character appears in")
	cmd.Flags().StringVar(&q.Location, "location", "", "Only scenes at this location")
	cmd.Flags().StringArrayVar(&q.Tags, "tag", nil, "Only scenes carrying CATEGORY:tag (repeatable)")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "Skip this many results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	return cmd
}
