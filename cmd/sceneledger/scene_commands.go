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

	"github.com/spf13/cobra"

	"sceneledger/internal/domain"
	"sceneledger/internal/ledger"
)

func newSceneCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newScenesCommand(ctx),
		newShowCommand(ctx),
		newEditCommand(ctx),
		newAddCommand(ctx),
		newDeleteCommand(ctx),
		newUndoCommand(ctx, "undo", "Revert the last manual edit of a scene", (*ledger.Ledger).Undo),
		newUndoCommand(ctx, "redo", "Reapply the last undone edit of a scene", (*ledger.Ledger).Redo),
	}
}

func newScenesCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var orphaned bool
	var review bool

	cmd := &cobra.Command{
		Use:   "scenes",
		Short: "List the scenes of the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(cmd.Context(), func(_ *openStore, l *ledger.Ledger) error {
				snap := l.Snapshot()
				scenes := snap.Scenes[:0:0]
				for _, sc := range snap.Scenes {
					if orphaned && !sc.Orphaned || review && !sc.NeedsReview {
						continue
					}
					scenes = append(scenes, sc)
				}
				if asJSON {
					return writeJSON(cmd, scenes)
				}
				if len(scenes) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No scenes")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(sceneHeaders, sceneRows(scenes), sceneAligns))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print scenes as JSON")
	cmd.Flags().BoolVar(&orphaned, "orphaned", false, "Only scenes missing from the last import")
	cmd.Flags().BoolVar(&review, "review", false, "Only scenes flagged for review")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <number>",
		Short: "Show one scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(cmd.Context(), func(_ *openStore, l *ledger.Ledger) error {
				sc, ok := l.Scene(normalizeNumber(args[0]))
				if !ok {
					return fmt.Errorf("scene %q: %w", args[0], ledger.ErrSceneNotFound)
				}
				if asJSON {
					return writeJSON(cmd, sc)
				}
				printScene(cmd, sc)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the scene as JSON")
	return cmd
}

func printScene(cmd *cobra.Command, sc domain.Scene) {
	rows := [][]string{
		{"Heading", heading(sc)},
		{"Synopsis", sc.Synopsis},
		{"Cast", strings.Join(sc.Cast, ", ")},
		{"Elements", tagList(sc.Elements)},
		{"Pages", sc.Pages.String()},
		{"Lines", fmt.Sprintf("%d-%d", sc.Span.Start+1, sc.Span.End+1)},
		{"Origin", sc.Origin.String()},
		{"Revision", fmt.Sprint(sc.Revision)},
	}
	if f := sceneFlags(sc); f != "" {
		rows = append(rows, []string{"Flags", f})
	}
	for _, n := range sc.ReviewNotes {
		rows = append(rows, []string{"Review", n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Scene %s\n", sc.Number)
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var intExt, location, timeOfDay string
	var addTags, removeTags []string

	cmd := &cobra.Command{
		Use:   "edit <number>",
		Short: "Change the user-set fields of a scene",
		Long:  "Change the user-set fields of a scene. Edited fields are kept across re-imports.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fl := cmd.Flags()
			if !fl.Changed("int-ext") && !fl.Changed("location") && !fl.Changed("time") && len(addTags) == 0 && len(removeTags) == 0 {
				return errors.New("nothing to change; pass --int-ext, --location, --time, --add-tag or --remove-tag")
			}
			apply := func(f *domain.UserFields) error {
				if fl.Changed("int-ext") {
					v, err := domain.ParseIntExt(intExt)
					if err != nil {
						return err
					}
					f.IntExt = v
				}
				if fl.Changed("location") {
					f.Location = strings.ToUpper(strings.TrimSpace(location))
				}
				if fl.Changed("time") {
					v, err := domain.ParseTimeOfDay(timeOfDay)
					if err != nil {
						return err
					}
					f.TimeOfDay = v
				}
				for _, t := range addTags {
					c, tag, err := parseTagFlag(t)
					if err != nil {
						return err
					}
					f.Elements.Add(c, tag)
				}
				for _, t := range removeTags {
					c, tag, err := parseTagFlag(t)
					if err != nil {
						return err
					}
					f.Elements.Remove(c, tag)
				}
				return nil
			}
			return ctx.withLedger(cmd.Context(), func(_ *openStore, l *ledger.Ledger) error {
				sc, err := l.Edit(normalizeNumber(args[0]), apply)
				if err != nil {
					return err
				}
				printScene(cmd, sc)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&intExt, "int-ext", "", "INT, EXT or INT_EXT")
	cmd.Flags().StringVar(&location, "location", "", "Scene location")
	cmd.Flags().StringVar(&timeOfDay, "time", "", "DAY, NIGHT, DAWN, DUSK, CONTINUOUS, LATER or UNSPECIFIED")
	cmd.Flags().StringArrayVar(&addTags, "add-tag", nil, "Add a breakdown element, CATEGORY=tag (repeatable)")
	cmd.Flags().StringArrayVar(&removeTags, "remove-tag", nil, "Remove a breakdown element, CATEGORY=tag (repeatable)")
	return cmd
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var number, intExt, timeOfDay, synopsis string
	var cast []string

	cmd := &cobra.Command{
		Use:   "add <location>",
		Short: "Add a scene by hand",
		Long:  "Add a scene by hand. Hand-made scenes are never orphaned by a later import.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := domain.Scene{
				Number:   number,
				Location: strings.ToUpper(strings.TrimSpace(args[0])),
				Synopsis: synopsis,
				Cast:     cast,
			}
			var err error
			if intExt != "" {
				if sc.IntExt, err = domain.ParseIntExt(intExt); err != nil {
					return err
				}
			}
			if timeOfDay != "" {
				if sc.TimeOfDay, err = domain.ParseTimeOfDay(timeOfDay); err != nil {
					return err
				}
			}
			return ctx.withLedger(cmd.Context(), func(_ *openStore, l *ledger.Ledger) error {
				added, err := l.AddManual(sc)
				if err != nil {
					return err
				}
				printScene(cmd, added)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&number, "number", "", "Scene number; empty takes the next free number")
	cmd.Flags().StringVar(&intExt, "int-ext", "", "INT, EXT or INT_EXT")
	cmd.Flags().StringVar(&timeOfDay, "time", "", "Time of day")
	cmd.Flags().StringVar(&synopsis, "synopsis", "", "One-line synopsis")
	cmd.Flags().StringSliceVar(&cast, "cast", nil, "Characters present (comma separated)")
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <number>",
		Short: "Remove a scene from the ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			number := normalizeNumber(args[0])
			return ctx.withLedger(cmd.Context(), func(_ *openStore, l *ledger.Ledger) error {
				if err := l.Delete(number); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted scene %s\n", number)
				return nil
			})
		},
	}
}

func newUndoCommand(ctx *commandContext, use, short string, step func(*ledger.Ledger, string) (domain.Scene, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <number>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(cmd.Context(), func(_ *openStore, l *ledger.Ledger) error {
				sc, err := step(l, normalizeNumber(args[0]))
				if err != nil {
					return err
				}
				printScene(cmd, sc)
				return nil
			})
		},
	}
}

// parseTagFlag reads CATEGORY=tag; CATEGORY:tag is accepted too.
func parseTagFlag(s string) (domain.Category, string, error) {
	i := strings.IndexAny(s, "=:")
	if i < 0 {
		return 0, "", fmt.Errorf("tag %q: want CATEGORY=tag", s)
	}
	c, err := domain.ParseCategory(s[:i])
	if err != nil {
		return 0, "", err
	}
	tag := strings.TrimSpace(s[i+1:])
	if tag == "" {
		return 0, "", fmt.Errorf("tag %q: empty tag", s)
	}
	return c, tag, nil
}

func normalizeNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
