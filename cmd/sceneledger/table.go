/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"sceneledger/internal/domain"
	"sceneledger/internal/screenplay"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    48,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func heading(sc domain.Scene) string {
	if sc.Location == "" && sc.IntExt == domain.IntExtUnspecified {
		return "(no heading)"
	}
	return screenplay.FormatHeading(screenplay.Heading{IntExt: sc.IntExt, Location: sc.Location, TimeOfDay: sc.TimeOfDay})
}

func sceneFlags(sc domain.Scene) string {
	var f []string
	if sc.Origin.Edited() {
		f = append(f, "edited")
	}
	if sc.NeedsReview {
		f = append(f, "review")
	}
	if sc.Orphaned {
		f = append(f, "orphaned")
	}
	return strings.Join(f, ",")
}

func sceneRows(scenes []domain.Scene) [][]string {
	rows := make([][]string, 0, len(scenes))
	for _, sc := range scenes {
		rows = append(rows, []string{sc.Number, heading(sc), sc.Pages.String(), strings.Join(sc.Cast, ", "), sceneFlags(sc)})
	}
	return rows
}

var sceneHeaders = []string{"#", "Heading", "Pages", "Cast", "Flags"}

var sceneAligns = []columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft}

// tagList renders the non-cast, non-location elements as CAT:tag pairs.
func tagList(e domain.Elements) string {
	var out []string
	for _, c := range domain.Categories {
		if c == domain.CategoryCast || c == domain.CategoryLocation {
			continue
		}
		for _, t := range e.Tags(c) {
			out = append(out, c.String()+":"+t)
		}
	}
	return strings.Join(out, " ")
}
