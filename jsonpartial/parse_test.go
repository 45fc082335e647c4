package jsonpartial

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{"empty", "", nil},
		{"whitespace", "  \n", nil},
		{"open object", "{", map[string]any{}},
		{"partial key", `{"na`, map[string]any{}},
		{"key without colon", `{"name"`, map[string]any{}},
		{"key without value", `{"name":`, map[string]any{}},
		{"partial string value", `{"name":"Te`, map[string]any{}},
		{"complete string value", `{"name":"Test Tool"`, map[string]any{"name": "Test Tool"}},
		{"array with partial string", `{"items":["a","b`, map[string]any{"items": []any{"a"}}},
		{"array of strings", `{"items":["a","b"`, map[string]any{"items": []any{"a", "b"}}},
		{"nested number held back", `{"count":4`, map[string]any{}},
		{"nested number with delimiter", `{"count":42,`, map[string]any{"count": float64(42)}},
		{"nested number closed", `{"count":42}`, map[string]any{"count": float64(42)}},
		{"negative sign only", `[-`, []any{}},
		{"exponent incomplete", `[1e,`, []any{}},
		{"truncated literal", `{"ok":tr`, map[string]any{}},
		{"complete literal", `{"ok":true`, map[string]any{"ok": true}},
		{"null value", `{"v":null}`, map[string]any{"v": nil}},
		{"nested partial object", `{"a":{"b":1,"c":"x`, map[string]any{"a": map[string]any{"b": float64(1)}}},
		{"escaped string", `{"q":"say \"hi\""}`, map[string]any{"q": `say "hi"`}},
		{"escape cut short", `{"q":"a\`, map[string]any{}},
		{"trailing comma", `[1,2,]`, []any{float64(1), float64(2)}},
		{"garbage suffix", `{"a":1}xyz`, map[string]any{"a": float64(1)}},
		{"garbage inside", `{"a":1,@@}`, map[string]any{"a": float64(1)}},
		{"top-level string partial", `"abc`, nil},
		{"top-level string", `"abc"`, "abc"},
		{"top-level number", `42`, float64(42)},
		{"lone minus", `-`, nil},
		{"garbage", `xyz`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.input))
		})
	}
}

func TestParse_StreamedFragments(t *testing.T) {
	fragments := []string{
		`{"na`,
		`me":"Test Tool"`,
		`,"items":["item1"`,
		`,"item2","item3"],"count":42}`,
	}
	want := []any{
		map[string]any{},
		map[string]any{"name": "Test Tool"},
		map[string]any{"name": "Test Tool", "items": []any{"item1"}},
		map[string]any{"name": "Test Tool", "items": []any{"item1", "item2", "item3"}, "count": float64(42)},
	}

	var buf string
	for i, f := range fragments {
		buf += f
		assert.Equal(t, want[i], Parse(buf), "after fragment %d", i)
	}
}

func TestParse_PrefixMonotonic(t *testing.T) {
	docs := []string{
		`{"name":"Test Tool","items":["item1","item2","item3"],"count":42}`,
		`{"location":"Paris","units":"metric","days":[1,2,3],"flags":{"wind":true,"rain":null}}`,
		`[{"a":"x\ny"},{"b":[true,false,-1.5e3]},"tail"]`,
		`{"nested":{"deep":{"deeper":["v",{"k":0.25}]}},"empty":{},"list":[]}`,
	}

	for _, doc := range docs {
		t.Run(doc, func(t *testing.T) {
			var full any
			require.NoError(t, json.Unmarshal([]byte(doc), &full))

			var prev any
			for i := 0; i <= len(doc); i++ {
				got := Parse(doc[:i])
				assert.True(t, contains(got, prev), "prefix %q regressed: %v -> %v", doc[:i], prev, got)
				assert.GreaterOrEqual(t, Weight(got), Weight(prev), "weight regressed at %q", doc[:i])
				prev = got
			}
			assert.Equal(t, full, prev)
		})
	}
}

func TestParseObject(t *testing.T) {
	assert.Equal(t, map[string]any{}, ParseObject(""))
	assert.Equal(t, map[string]any{}, ParseObject(`[1,2]`))
	assert.Equal(t, map[string]any{"a": "b"}, ParseObject(`{"a":"b"`))
}

func TestParse_NeverPanics(t *testing.T) {
	inputs := []string{
		"}", "]", ":", ",", `{"a"::}`, `[[[[`, `{{`, `"\u12`, `{"a":"\uZZZZ"}`,
		string([]byte{0xff, 0xfe}), `[1.2.3]`, `{"a":--1}`, `nul`, `falsey`,
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Parse(in) }, "input %q", in)
	}
}

func TestParse_DepthLimit(t *testing.T) {
	deep := ""
	for i := 0; i < maxDepth*2; i++ {
		deep += "["
	}
	assert.NotPanics(t, func() { Parse(deep) })
}

func TestWeight(t *testing.T) {
	assert.Equal(t, 0, Weight(nil))
	assert.Equal(t, 1, Weight("x"))
	assert.Equal(t, 1, Weight(map[string]any{}))
	assert.Equal(t, 3, Weight(map[string]any{"a": "b"}))
	assert.Equal(t, 3, Weight([]any{"a", float64(1)}))
}

// contains reports whether big structurally contains small: every key of a
// small object is present in big with a contained value, and a small array is
// an element-wise contained prefix of big.
func contains(big, small any) bool {
	if small == nil {
		return true
	}
	switch s := small.(type) {
	case map[string]any:
		b, ok := big.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range s {
			bv, ok := b[k]
			if !ok || !contains(bv, v) {
				return false
			}
		}
		return true
	case []any:
		b, ok := big.([]any)
		if !ok || len(b) < len(s) {
			return false
		}
		for i := range s {
			if !contains(b[i], s[i]) {
				return false
			}
		}
		return true
	default:
		return assert.ObjectsAreEqual(big, small)
	}
}
