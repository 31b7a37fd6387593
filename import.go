package tutor

import (
	"encoding/json"
	"fmt"
	"io"
)

// MergeStrategy defines how an import treats words that are already saved.
type MergeStrategy string

const (
	// MergeStrategySkip keeps the saved word and its schedule.
	MergeStrategySkip MergeStrategy = "skip"
	// MergeStrategyReplace discards the current list and installs the imported one.
	MergeStrategyReplace MergeStrategy = "replace"
)

// ParseMergeStrategy parses a strategy name; empty means skip.
func ParseMergeStrategy(s string) (MergeStrategy, error) {
	switch MergeStrategy(s) {
	case "", MergeStrategySkip:
		return MergeStrategySkip, nil
	case MergeStrategyReplace:
		return MergeStrategyReplace, nil
	default:
		return "", fmt.Errorf("invalid merge strategy %q: want skip or replace", s)
	}
}

// ImportResult summarizes an import.
type ImportResult struct {
	Total   int      `json:"total"`
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// ImportJSON reads a document written by ExportJSON. A bare JSON array
// of favorites is accepted too.
func (f *Favorites) ImportJSON(r io.Reader, strategy MergeStrategy) (*ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("import: read: %w", err)
	}

	var items []FavoriteWord
	var doc ExportFormat
	if err := json.Unmarshal(data, &doc); err == nil && doc.Version != "" {
		if doc.Version != ExportVersion {
			return nil, fmt.Errorf("import: unsupported export version %q", doc.Version)
		}
		items = doc.Favorites
	} else if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("import: decode: %w", err)
	}

	return f.importItems(items, nil, strategy)
}

// ImportXLSX reads a spreadsheet laid out like ExportXLSX output.
func (f *Favorites) ImportXLSX(r io.Reader, strategy MergeStrategy) (*ImportResult, error) {
	items, problems, err := readXLSXFavorites(r, f.now())
	if err != nil {
		return nil, err
	}
	return f.importItems(items, problems, strategy)
}

func (f *Favorites) importItems(items []FavoriteWord, problems []string, strategy MergeStrategy) (*ImportResult, error) {
	result := &ImportResult{Total: len(items) + len(problems), Errors: problems}

	switch strategy {
	case MergeStrategyReplace:
		if err := f.Replace(items); err != nil {
			return result, err
		}
		result.Created = f.Len()
		result.Skipped = len(items) - result.Created
	case MergeStrategySkip, "":
		added, err := f.Merge(items)
		result.Created = added
		result.Skipped = len(items) - added
		if err != nil {
			return result, err
		}
	default:
		return nil, fmt.Errorf("import: invalid merge strategy %q", strategy)
	}
	return result, nil
}
