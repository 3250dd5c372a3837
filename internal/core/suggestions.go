package core

import "strings"

// Suggestions holds autocomplete values, each list de-duplicated in order
// of first appearance.
type Suggestions struct {
	Products []string `json:"products"`
	ForList  []string `json:"forList"`
	ByList   []string `json:"byList"`
	FromList []string `json:"fromList"`
}

var suggestionColumns = []string{ColumnProduct, ColumnFor, ColumnBy, ColumnFrom}

// SuggestionCollector accumulates distinct values across data rows.
type SuggestionCollector struct {
	schema Schema
	seen   [4]map[string]struct{}
	lists  [4][]string
}

func NewSuggestionCollector(s Schema) *SuggestionCollector {
	c := &SuggestionCollector{schema: s}
	for i := range c.seen {
		c.seen[i] = map[string]struct{}{}
		c.lists[i] = []string{}
	}
	return c
}

// Add records the values of one data row. Blank cells are skipped.
func (c *SuggestionCollector) Add(row Row) {
	for i, col := range suggestionColumns {
		v := strings.TrimSpace(c.schema.Cell(row, col))
		if v == "" {
			continue
		}
		if _, ok := c.seen[i][v]; ok {
			continue
		}
		c.seen[i][v] = struct{}{}
		c.lists[i] = append(c.lists[i], v)
	}
}

func (c *SuggestionCollector) Result() Suggestions {
	return Suggestions{
		Products: append([]string{}, c.lists[0]...),
		ForList:  append([]string{}, c.lists[1]...),
		ByList:   append([]string{}, c.lists[2]...),
		FromList: append([]string{}, c.lists[3]...),
	}
}
