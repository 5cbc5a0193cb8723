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
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"sceneledger/internal/ledger"
)

func newConflictsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "List reconcile decisions waiting for the user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(cmd.Context(), func(_ *openStore, l *ledger.Ledger) error {
				cs := l.Conflicts()
				if asJSON {
					if cs == nil {
						cs = []ledger.Conflict{}
					}
					return writeJSON(cmd, cs)
				}
				if len(cs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No pending conflicts")
					return nil
				}
				var rows [][]string
				for _, c := range cs {
					for i, p := range c.Parsed {
						id, reason, existing := "", "", ""
						if i == 0 {
							id, reason, existing = c.ID.String(), c.Reason.String(), strings.Join(c.Existing, ", ")
						}
						rows = append(rows, []string{id, reason, existing, fmt.Sprintf("[%d] %s %s", i, p.Number, heading(p))})
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Conflict", "Reason", "Ledger scenes", "Parsed candidates"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print conflicts as JSON")
	return cmd
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var pick int
	var into string
	var createAll bool
	var keep bool

	cmd := &cobra.Command{
		Use:   "resolve <conflict-id>",
		Short: "Decide a pending conflict",
		Long: "Decide a pending conflict: --pick N merges parsed candidate N into a ledger scene " +
			"(--into selects it when the conflict names several), --create-all adds every candidate " +
			"as a new scene, --keep discards the candidates.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveConflictID(ctx, cmd, args[0])
			if err != nil {
				return err
			}
			picked := cmd.Flags().Changed("pick")
			n := 0
			for _, set := range []bool{picked, createAll, keep} {
				if set {
					n++
				}
			}
			if n != 1 {
				return errors.New("pass exactly one of --pick, --create-all or --keep")
			}
			var d ledger.Decision
			switch {
			case picked:
				d = ledger.Pick(normalizeNumber(into), pick)
			case createAll:
				d = ledger.CreateAll()
			default:
				d = ledger.KeepExisting()
			}
			return ctx.withLedger(cmd.Context(), func(_ *openStore, l *ledger.Ledger) error {
				res, err := l.ResolveConflict(id, d)
				if err != nil {
					return err
				}
				printResult(cmd, res)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&pick, "pick", 0, "Index of the parsed candidate to merge")
	cmd.Flags().StringVar(&into, "into", "", "Ledger scene to merge the candidate into")
	cmd.Flags().BoolVar(&createAll, "create-all", false, "Create every candidate as a new scene")
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep the ledger as is and drop the candidates")
	return cmd
}

// resolveConflictID accepts a full id or a unique prefix of one.
func resolveConflictID(ctx *commandContext, cmd *cobra.Command, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}
	var found []uuid.UUID
	err := ctx.withLedger(cmd.Context(), func(_ *openStore, l *ledger.Ledger) error {
		for _, c := range l.Conflicts() {
			if strings.HasPrefix(c.ID.String(), strings.ToLower(arg)) {
				found = append(found, c.ID)
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	switch len(found) {
	case 0:
		return uuid.Nil, fmt.Errorf("conflict %q: %w", arg, ledger.ErrConflictNotFound)
	case 1:
		return found[0], nil
	default:
		return uuid.Nil, fmt.Errorf("conflict prefix %q matches %d conflicts", arg, len(found))
	}
}
