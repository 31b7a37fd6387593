package tutor

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportVersion is the current version of the favorites export format.
const ExportVersion = "1.0"

// FavoritesSheet is the worksheet name used for spreadsheet exports.
const FavoritesSheet = "Favorites"

// ExportFormat is the top-level structure of a JSON favorites export.
type ExportFormat struct {
	Version    string         `json:"version"`
	ExportedAt time.Time      `json:"exported_at"`
	Profile    string         `json:"profile,omitempty"`
	Favorites  []FavoriteWord `json:"favorites"`
}

// ExportJSON writes the favorites list as an indented JSON document.
func (f *Favorites) ExportJSON(w io.Writer, profile string) error {
	doc := ExportFormat{
		Version:    ExportVersion,
		ExportedAt: f.now().UTC(),
		Profile:    profile,
		Favorites:  f.List(),
	}
	if doc.Favorites == nil {
		doc.Favorites = []FavoriteWord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("export: encode favorites: %w", err)
	}
	return nil
}

var xlsxHeader = []any{
	"Russian", "Pronunciation", "Translation", "Base form",
	"Repetition", "Interval", "Ease factor", "Next review",
}

// ExportXLSX writes the favorites list as a spreadsheet with one row per word.
func (f *Favorites) ExportXLSX(w io.Writer) error {
	book := excelize.NewFile()
	defer func() { _ = book.Close() }()

	book.SetSheetName("Sheet1", FavoritesSheet)

	if err := book.SetSheetRow(FavoritesSheet, "A1", &xlsxHeader); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for i, fav := range f.List() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export: cell name: %w", err)
		}
		row := []any{
			fav.Russian,
			fav.Pronunciation,
			fav.Translation,
			fav.BaseForm,
			fav.Repetition,
			fav.Interval,
			fav.EaseFactor,
			fav.NextReviewDate.Format(time.DateOnly),
		}
		if err := book.SetSheetRow(FavoritesSheet, cell, &row); err != nil {
			return fmt.Errorf("export: write row %d: %w", i+2, err)
		}
	}

	if err := book.Write(w); err != nil {
		return fmt.Errorf("export: write workbook: %w", err)
	}
	return nil
}

// readXLSXFavorites parses a spreadsheet laid out like ExportXLSX output.
// Only the Russian column is required; missing schedule columns give a
// fresh schedule due today.
func readXLSXFavorites(r io.Reader, today time.Time) ([]FavoriteWord, []string, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("import: open workbook: %w", err)
	}
	defer func() { _ = book.Close() }()

	sheet := book.GetSheetName(0)
	if slices.Contains(book.GetSheetList(), FavoritesSheet) {
		sheet = FavoritesSheet
	}
	rows, err := book.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("import: read rows: %w", err)
	}

	var (
		out      []FavoriteWord
		problems []string
	)
	for i, row := range rows {
		if i == 0 {
			continue
		}
		col := func(n int) string {
			if n < len(row) {
				return row[n]
			}
			return ""
		}
		if col(0) == "" {
			continue
		}

		fav := FavoriteWord{
			Word: Word{
				Russian:       col(0),
				Pronunciation: col(1),
				Translation:   col(2),
				BaseForm:      col(3),
			},
			Schedule: NewSchedule(today),
		}
		if v := col(4); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("row %d: repetition %q: %v", i+1, v, err))
				continue
			}
			fav.Repetition = n
		}
		if v := col(5); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				problems = append(problems, fmt.Sprintf("row %d: interval %q: %v", i+1, v, err))
				continue
			}
			fav.Interval = n
		}
		if v := col(6); v != "" {
			ef, err := strconv.ParseFloat(v, 64)
			if err != nil {
				problems = append(problems, fmt.Sprintf("row %d: ease factor %q: %v", i+1, v, err))
				continue
			}
			fav.EaseFactor = ef
		}
		if v := col(7); v != "" {
			d, err := time.ParseInLocation(time.DateOnly, v, today.Location())
			if err != nil {
				problems = append(problems, fmt.Sprintf("row %d: next review %q: %v", i+1, v, err))
				continue
			}
			fav.NextReviewDate = d
		}
		out = append(out, fav)
	}
	return out, problems, nil
}
