package bitable

import "strings"

// Condition is a single field predicate in a search filter.
type Condition struct {
	FieldName string   `json:"field_name"`
	Operator  string   `json:"operator"`
	Value     []string `json:"value"`
}

// Filter is the predicate tree carried in a record search body.
type Filter struct {
	Conjunction string      `json:"conjunction"`
	Conditions  []Condition `json:"conditions"`
}

// EqualityTerm pairs a physical column name with the value it must equal.
type EqualityTerm struct {
	Field string
	Value string
}

// BuildFilter conjoins equality terms into an AND filter. Terms with a blank
// field or value are dropped; returns nil when nothing remains, which callers
// treat as an unfiltered scan.
func BuildFilter(terms []EqualityTerm) *Filter {
	conditions := []Condition{}
	for _, term := range terms {
		field := strings.TrimSpace(term.Field)
		value := strings.TrimSpace(term.Value)
		if field == "" || value == "" {
			continue
		}
		conditions = append(conditions, Condition{
			FieldName: field,
			Operator:  "is",
			Value:     []string{value},
		})
	}
	if len(conditions) == 0 {
		return nil
	}
	return &Filter{Conjunction: "and", Conditions: conditions}
}

// BuildValueFilter disjoins a list of candidate values against one column as
// an OR filter, deduplicating values first. Returns nil when the deduplicated
// list is empty.
func BuildValueFilter(field string, values []string) *Filter {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil
	}

	seen := map[string]bool{}
	conditions := []Condition{}
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		conditions = append(conditions, Condition{
			FieldName: field,
			Operator:  "is",
			Value:     []string{value},
		})
	}
	if len(conditions) == 0 {
		return nil
	}
	return &Filter{Conjunction: "or", Conditions: conditions}
}
