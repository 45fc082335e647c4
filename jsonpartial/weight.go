package jsonpartial

// Weight counts the nodes in a parsed value: one per scalar, container and
// object key. A longer prefix of the same document never weighs less than a
// shorter one, so callers use it to refuse a regressing parse.
func Weight(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case map[string]any:
		n := 1
		for _, child := range t {
			n += 1 + Weight(child)
		}
		return n
	case []any:
		n := 1
		for _, child := range t {
			n += Weight(child)
		}
		return n
	default:
		return 1
	}
}
