package bitable

import "testing"

func TestBuildFilter(t *testing.T) {
	t.Run("conjoins terms with and", func(t *testing.T) {
		filter := BuildFilter([]EqualityTerm{
			{Field: "App", Value: "com.smile.gifmaker"},
			{Field: "Status", Value: "pending"},
		})
		if filter == nil {
			t.Fatal("expected a filter")
		}
		if filter.Conjunction != "and" {
			t.Errorf("expected and, got %q", filter.Conjunction)
		}
		if len(filter.Conditions) != 2 {
			t.Fatalf("expected 2 conditions, got %d", len(filter.Conditions))
		}
		if filter.Conditions[0].Operator != "is" {
			t.Errorf("expected is operator, got %q", filter.Conditions[0].Operator)
		}
		if len(filter.Conditions[0].Value) != 1 || filter.Conditions[0].Value[0] != "com.smile.gifmaker" {
			t.Errorf("unexpected condition value: %v", filter.Conditions[0].Value)
		}
	})

	t.Run("drops blank fields and values", func(t *testing.T) {
		filter := BuildFilter([]EqualityTerm{
			{Field: "", Value: "x"},
			{Field: "App", Value: "  "},
			{Field: "Status", Value: "done"},
		})
		if filter == nil {
			t.Fatal("expected a filter")
		}
		if len(filter.Conditions) != 1 {
			t.Errorf("expected 1 condition, got %d", len(filter.Conditions))
		}
	})

	t.Run("nil when nothing remains", func(t *testing.T) {
		if filter := BuildFilter(nil); filter != nil {
			t.Errorf("expected nil, got %+v", filter)
		}
		if filter := BuildFilter([]EqualityTerm{{Field: "App", Value: ""}}); filter != nil {
			t.Errorf("expected nil, got %+v", filter)
		}
	})
}

func TestBuildValueFilter(t *testing.T) {
	t.Run("disjoins values with or", func(t *testing.T) {
		filter := BuildValueFilter("TaskID", []string{"1", "2", "3"})
		if filter == nil {
			t.Fatal("expected a filter")
		}
		if filter.Conjunction != "or" {
			t.Errorf("expected or, got %q", filter.Conjunction)
		}
		if len(filter.Conditions) != 3 {
			t.Errorf("expected 3 conditions, got %d", len(filter.Conditions))
		}
	})

	t.Run("deduplicates values", func(t *testing.T) {
		filter := BuildValueFilter("TaskID", []string{"1", "1", " 1 ", "2"})
		if filter == nil {
			t.Fatal("expected a filter")
		}
		if len(filter.Conditions) != 2 {
			t.Errorf("expected 2 conditions, got %d", len(filter.Conditions))
		}
	})

	t.Run("nil cases", func(t *testing.T) {
		if filter := BuildValueFilter("", []string{"1"}); filter != nil {
			t.Error("expected nil for blank field")
		}
		if filter := BuildValueFilter("TaskID", nil); filter != nil {
			t.Error("expected nil for no values")
		}
		if filter := BuildValueFilter("TaskID", []string{" ", ""}); filter != nil {
			t.Error("expected nil for blank values")
		}
	})
}
