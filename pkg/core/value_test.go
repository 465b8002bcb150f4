package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareValues(t *testing.T) {
	tests := []struct {
		name string
		a, b any
		want int
	}{
		{"int vs float equal", 10, 10.0, 0},
		{"int less than float", 3, 3.5, -1},
		{"strings", "apple", "banana", -1},
		{"null before number", nil, -100, -1},
		{"number before string", 1e9, "0", -1},
		{"string before object", "z", map[string]any{}, -1},
		{"object before array", map[string]any{"a": 1}, []any{}, -1},
		{"array before bool", []any{1}, false, -1},
		{"false before true", false, true, -1},
		{"arrays elementwise", []any{1, 2}, []any{1, 3}, -1},
		{"shorter array prefix first", []any{1}, []any{1, 0}, -1},
		{"objects by key", map[string]any{"a": 1}, map[string]any{"b": 0}, -1},
		{"objects by value", map[string]any{"a": 2}, map[string]any{"a": 1}, 1},
		{"document equals map", Document{"a": 1}, map[string]any{"a": 1.0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CompareValues(tt.a, tt.b))
			assert.Equal(t, -tt.want, CompareValues(tt.b, tt.a))
		})
	}
}

func TestCanonicalKey(t *testing.T) {
	assert.Equal(t, CanonicalKey(1950), CanonicalKey(1950.0))
	assert.Equal(t, CanonicalKey(map[string]any{"a": 1, "b": "x"}), CanonicalKey(Document{"b": "x", "a": 1}))
	assert.NotEqual(t, CanonicalKey("1"), CanonicalKey(1))
	assert.NotEqual(t, CanonicalKey(nil), CanonicalKey(""))
	assert.NotEqual(t, CanonicalKey([]any{"a,b"}), CanonicalKey([]any{"a", "b"}))
}

func TestDocumentLookup(t *testing.T) {
	doc := Document{
		"title": "Emma",
		"publisher": map[string]any{
			"name":    "John Murray",
			"address": map[string]any{"city": "London"},
		},
		"note": nil,
	}

	v, ok := doc.Lookup("publisher.address.city")
	assert.True(t, ok)
	assert.Equal(t, "London", v)

	_, ok = doc.Lookup("publisher.address.zip")
	assert.False(t, ok)

	_, ok = doc.Lookup("title.length")
	assert.False(t, ok)

	v, ok = doc.Lookup("note")
	assert.True(t, ok)
	assert.Nil(t, v)

	assert.Nil(t, doc.Value("missing"))
}

func TestCloneValueIsDeep(t *testing.T) {
	src := map[string]any{"list": []any{map[string]any{"k": "v"}}}
	dst := CloneValue(src).(map[string]any)

	dst["list"].([]any)[0].(map[string]any)["k"] = "changed"
	assert.Equal(t, "v", src["list"].([]any)[0].(map[string]any)["k"])
}
