package stream

import (
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

// --- getStringAttr Tests ---

func TestGetStringAttr(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"userId":    events.NewStringAttribute("alice"),
		"empty":     events.NewStringAttribute(""),
		"unicode":   events.NewStringAttribute("営業部"),
		"sortIndex": events.NewNumberAttribute("3"),
	}

	tests := []struct {
		name     string
		image    map[string]events.DynamoDBAttributeValue
		key      string
		expected string
	}{
		{"existing", image, "userId", "alice"},
		{"empty value", image, "empty", ""},
		{"unicode", image, "unicode", "営業部"},
		{"missing key", image, "dimensionId", ""},
		{"number attribute", image, "sortIndex", ""},
		{"nil image", nil, "userId", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getStringAttr(tt.image, tt.key); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

// --- getNumberAttr Tests ---

func TestGetNumberAttr(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"sortIndex": events.NewNumberAttribute("42"),
		"negative":  events.NewNumberAttribute("-7"),
		"decimal":   events.NewNumberAttribute("1.5"),
		"name":      events.NewStringAttribute("12"),
	}

	tests := []struct {
		name     string
		image    map[string]events.DynamoDBAttributeValue
		key      string
		expected int64
	}{
		{"valid", image, "sortIndex", 42},
		{"negative", image, "negative", -7},
		{"not an integer", image, "decimal", 0},
		{"string attribute", image, "name", 0},
		{"missing key", image, "priority", 0},
		{"nil image", nil, "sortIndex", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getNumberAttr(tt.image, tt.key); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

// --- getStringListAttr Tests ---

func TestGetStringListAttr_StringSet(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"actions": events.NewStringSetAttribute([]string{"read", "write"}),
	}

	result := getStringListAttr(image, "actions")
	if len(result) != 2 || result[0] != "read" || result[1] != "write" {
		t.Errorf("expected [read write], got %v", result)
	}
}

func TestGetStringListAttr_ListWithMixedTypes(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"actions": events.NewListAttribute([]events.DynamoDBAttributeValue{
			events.NewStringAttribute("read"),
			events.NewNumberAttribute("1"),
			events.NewStringAttribute("export"),
		}),
	}

	result := getStringListAttr(image, "actions")
	if len(result) != 2 || result[1] != "export" {
		t.Errorf("expected only strings, got %v", result)
	}
}

func TestGetStringListAttr_Missing(t *testing.T) {
	image := map[string]events.DynamoDBAttributeValue{
		"actions": events.NewStringAttribute("read"),
	}
	if result := getStringListAttr(image, "actions"); result != nil {
		t.Errorf("expected nil for non-list attribute, got %v", result)
	}
	if result := getStringListAttr(nil, "actions"); result != nil {
		t.Errorf("expected nil for nil image, got %v", result)
	}
}

// --- attrs Tests ---

func TestAttrs_Changed(t *testing.T) {
	tracked := attrs{
		strings: []string{"parentId"},
		numbers: []string{"sortIndex"},
		lists:   []string{"actions"},
	}
	base := func() map[string]events.DynamoDBAttributeValue {
		return map[string]events.DynamoDBAttributeValue{
			"parentId":  events.NewStringAttribute("A"),
			"sortIndex": events.NewNumberAttribute("1"),
			"actions":   events.NewStringSetAttribute([]string{"read", "write"}),
			"label":     events.NewStringAttribute("x"),
		}
	}

	tests := []struct {
		name     string
		mutate   func(m map[string]events.DynamoDBAttributeValue)
		expected bool
	}{
		{"identical", func(m map[string]events.DynamoDBAttributeValue) {}, false},
		{"untracked attribute", func(m map[string]events.DynamoDBAttributeValue) {
			m["label"] = events.NewStringAttribute("y")
		}, false},
		{"set reordered", func(m map[string]events.DynamoDBAttributeValue) {
			m["actions"] = events.NewStringSetAttribute([]string{"write", "read"})
		}, false},
		{"string changed", func(m map[string]events.DynamoDBAttributeValue) {
			m["parentId"] = events.NewStringAttribute("B")
		}, true},
		{"string removed", func(m map[string]events.DynamoDBAttributeValue) {
			delete(m, "parentId")
		}, true},
		{"number changed", func(m map[string]events.DynamoDBAttributeValue) {
			m["sortIndex"] = events.NewNumberAttribute("2")
		}, true},
		{"set changed", func(m map[string]events.DynamoDBAttributeValue) {
			m["actions"] = events.NewStringSetAttribute([]string{"read", "delete"})
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			after := base()
			tt.mutate(after)
			if got := tracked.changed(base(), after); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// --- Benchmark Tests ---

func BenchmarkAttrsChanged(b *testing.B) {
	before := map[string]events.DynamoDBAttributeValue{
		"dimensionType":   events.NewStringAttribute("dept"),
		"dimensionTarget": events.NewStringAttribute("d41d8cd98f00b204e9800998ecf8427e"),
		"actions":         events.NewStringSetAttribute([]string{"read", "write", "export"}),
	}
	after := map[string]events.DynamoDBAttributeValue{
		"dimensionType":   events.NewStringAttribute("dept"),
		"dimensionTarget": events.NewStringAttribute("d41d8cd98f00b204e9800998ecf8427e"),
		"actions":         events.NewStringSetAttribute([]string{"export", "read", "write"}),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		settingAttrs.changed(before, after)
	}
}
