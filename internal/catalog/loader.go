package catalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/copilot/internal/models"
	"github.com/xuri/excelize/v2"
)

// Column headers of the technology spreadsheet. Headers are matched after trimming.
const (
	ColumnTitle       = "Title"
	ColumnProvider    = "Technology Provider"
	ColumnDescription = "Technology Description"
	ColumnCategory    = "Category"
	ColumnSubCategory = "Sub-Category"
	ColumnTRL         = "TRL"
	ColumnNotes       = "Technology Comments/ Additional Info."
	ColumnExists      = "Does the Technology still exist?"
)

const missingValue = "N/A"

// LoadFile parses the catalog at path, keeps only technologies that still exist
// and assigns dense IDs 0..N-1 in row order. sheet selects the worksheet for
// spreadsheet files; empty means the first sheet.
func LoadFile(path, sheet string) ([]models.TechnologyRecord, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCatalogUnavailable, path)
		}
		return nil, fmt.Errorf("stat catalog: %w", err)
	}
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	default:
		rows, err = readSpreadsheet(path, sheet)
	}
	if err != nil {
		return nil, err
	}
	return ParseRows(rows)
}

func readSpreadsheet(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("spreadsheet has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// ParseRows converts a header row plus data rows into filtered records.
// When the existence column is absent every row is kept.
func ParseRows(rows [][]string) ([]models.TechnologyRecord, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("catalog has no header row")
	}
	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.TrimSpace(name)] = i
	}
	col := func(row []string, name string) string {
		i, ok := header[name]
		if !ok || i >= len(row) {
			return missingValue
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			return missingValue
		}
		return v
	}
	existsIdx, filterExisting := header[ColumnExists]

	records := make([]models.TechnologyRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		if filterExisting {
			v := ""
			if existsIdx < len(row) {
				v = row[existsIdx]
			}
			if !IsExisting(v) {
				continue
			}
		}
		records = append(records, models.TechnologyRecord{
			ID:          len(records),
			Title:       col(row, ColumnTitle),
			Provider:    col(row, ColumnProvider),
			Description: col(row, ColumnDescription),
			Category:    col(row, ColumnCategory),
			SubCategory: col(row, ColumnSubCategory),
			TRL:         col(row, ColumnTRL),
			Notes:       col(row, ColumnNotes),
		})
	}
	return records, nil
}

// IsExisting reports whether an existence flag normalizes to yes, y or true.
func IsExisting(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "true":
		return true
	}
	return false
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Document renders the text blob that the similarity engine indexes for a record.
func Document(r models.TechnologyRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Technology: %s\n", r.Title)
	fmt.Fprintf(&b, "Provider: %s\n", r.Provider)
	fmt.Fprintf(&b, "Description: %s\n", r.Description)
	fmt.Fprintf(&b, "Category: %s\n", r.Category)
	fmt.Fprintf(&b, "Sub-Category: %s\n", r.SubCategory)
	fmt.Fprintf(&b, "TRL: %s\n", r.TRL)
	fmt.Fprintf(&b, "Additional Info: %s\n", r.Notes)
	return b.String()
}

// Metadata returns the partial metadata stored alongside each indexed document.
func Metadata(r models.TechnologyRecord) map[string]string {
	return map[string]string{
		"tech_id":      models.TechIDString(r.ID),
		"title":        r.Title,
		"provider":     r.Provider,
		"category":     r.Category,
		"sub_category": r.SubCategory,
		"trl":          r.TRL,
	}
}

// DocumentID returns the search-service id for a record.
func DocumentID(id int) string {
	return "tech_" + models.TechIDString(id)
}
