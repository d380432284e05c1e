// Copyright 2026 The Aliens4Friends Authors
// SPDX-License-Identifier: Apache-2.0

// TUI rendering for a harvest Document, built on rivo/tview: a single
// Application driving one primitive, started/stopped by the caller.

package harvest

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// NewTable renders doc as a scrollable tview.Table: one row per package,
// columns for version, match score, similarity, and main license.
func NewTable(doc *Document) *tview.Table {
	table := tview.NewTable().SetBorders(false).SetFixed(1, 0)
	headers := []string{"Name", "Version", "Match", "Similarity", "License"}
	for col, h := range headers {
		table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}
	for row, pkg := range doc.Packages {
		r := row + 1
		table.SetCell(r, 0, tview.NewTableCell(pkg.Name))
		table.SetCell(r, 1, tview.NewTableCell(pkg.Version))
		table.SetCell(r, 2, tview.NewTableCell(fmt.Sprintf("%.1f", pkg.MatchScore)))
		table.SetCell(r, 3, tview.NewTableCell(fmt.Sprintf("%.2f", pkg.Similarity)))
		table.SetCell(r, 4, tview.NewTableCell(pkg.MainLicense))
	}
	table.SetSelectable(true, false)
	return table
}

// RunTUI starts an interactive full-screen view of doc; Escape or 'q'
// quits.
func RunTUI(doc *Document) error {
	app := tview.NewApplication()
	table := NewTable(doc)
	table.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape || event.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return event
	})
	return app.SetRoot(table, true).SetFocus(table).Run()
}
