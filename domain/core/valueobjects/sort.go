package valueobjects

import (
	"fmt"
	"strings"
)

// SortSpec orders query results by a single column.
type SortSpec struct {
	Column     string
	Descending bool
}

// ParseSort reads "col" or "col:dir". Only "desc" (any case) sorts descending; any
// other direction sorts ascending.
func ParseSort(raw string) (*SortSpec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	column, dir, _ := strings.Cut(raw, ":")
	column = strings.TrimSpace(column)
	if column == "" {
		return nil, fmt.Errorf("sort column must not be empty")
	}
	return &SortSpec{
		Column:     column,
		Descending: strings.EqualFold(strings.TrimSpace(dir), "desc"),
	}, nil
}

// Direction returns the SQL keyword for the sort direction.
func (s SortSpec) Direction() string {
	if s.Descending {
		return "DESC"
	}
	return "ASC"
}
