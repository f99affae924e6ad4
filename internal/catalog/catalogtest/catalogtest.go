// Package catalogtest writes technology spreadsheets for tests.
package catalogtest

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

// Header is the full catalog header row.
var Header = []string{
	"Title",
	"Technology Provider",
	"Technology Description",
	"Category",
	"Sub-Category",
	"TRL",
	"Technology Comments/ Additional Info.",
	"Does the Technology still exist?",
}

// Row builds a data row matching Header.
func Row(title, provider, description, category, subCategory, trl, notes, exists string) []string {
	return []string{title, provider, description, category, subCategory, trl, notes, exists}
}

// WriteWorkbook saves header and rows to an .xlsx file at path.
func WriteWorkbook(t testing.TB, path string, header []string, rows ...[]string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	all := append([][]string{header}, rows...)
	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		vals := make([]interface{}, len(row))
		for j, v := range row {
			vals[j] = v
		}
		if err := f.SetSheetRow("Sheet1", cell, &vals); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
}

// WriteDefault writes a catalog with three existing technologies and one retired one.
func WriteDefault(t testing.TB, path string) {
	t.Helper()
	WriteWorkbook(t, path, Header,
		Row("Waste Heat Recovery", "ThermoCo", "Captures exhaust heat for reuse", "Energy", "Heat", "7", "Offshore tested", "Yes"),
		Row("Retired Flare Monitor", "OldCo", "Legacy flare sensor", "Monitoring", "Flare", "9", "", "No"),
		Row("Electric Drive Compressor", "VoltCo", "Replaces gas turbines with motors", "Electrification", "Drives", "8", "", "y"),
		Row("Methane Leak Detection", "SenseCo", "Drone based methane imaging", "Monitoring", "Leaks", "6", "Pilot phase", " TRUE "),
	)
}
