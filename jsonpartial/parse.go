// Package jsonpartial recovers the deepest valid JSON value from a prefix of
// a JSON document.
//
// Tool call arguments arrive as streamed text fragments that are not valid
// JSON until the last fragment arrives. Parse turns any prefix into a value
// that only contains what the text actually says:
//
//	Parse(`{"na`)                        // map[string]any{}
//	Parse(`{"name":"Test Tool"`)         // map[string]any{"name": "Test Tool"}
//	Parse(`{"items":["a","b"`)           // map[string]any{"items": []any{"a", "b"}}
//	Parse(`{"items":["a","b`)            // map[string]any{"items": []any{"a"}}
//
// Rules:
//   - an unterminated string is dropped, never guessed;
//   - an object key whose value has not started is dropped;
//   - a nested number is kept only once a delimiter follows it, so "4" is
//     never reported for a buffer that may become "42";
//   - true, false and null are kept only when fully spelled;
//   - open objects and arrays are closed;
//   - anything after the first unparseable byte is ignored.
//
// Numbers decode as float64 and objects as map[string]any, so the result for
// a complete document equals what encoding/json produces for it.
//
// Parse never panics and keeps no state between calls.
package jsonpartial

import (
	"encoding/json"
	"strconv"
	"strings"
)

// maxDepth bounds container nesting. Deeper input is truncated at the limit.
const maxDepth = 512

// Parse returns the deepest structurally valid value recoverable from text.
// It returns nil when no value can be recovered (empty input, a lone "-",
// an unterminated top-level string, garbage).
func Parse(text string) any {
	p := &parser{s: text}
	v, st := p.value(0)
	if st == stateNone {
		return nil
	}
	return v
}

// ParseObject is like Parse but always returns an object. Prefixes whose
// top-level value is not an object yield an empty map.
func ParseObject(text string) map[string]any {
	if m, ok := Parse(text).(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// state describes how much of a value was recovered.
type state int

const (
	// stateNone: nothing usable; the caller must drop the value and stop.
	stateNone state = iota
	// statePartial: a container cut short; usable, but the caller must stop.
	statePartial
	// stateComplete: the value ended properly; the caller may continue.
	stateComplete
)

type parser struct {
	s   string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.s) }

func (p *parser) skipSpace() {
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) value(depth int) (any, state) {
	p.skipSpace()
	if p.eof() {
		return nil, stateNone
	}
	switch c := p.s[p.pos]; {
	case c == '{':
		if depth >= maxDepth {
			return nil, stateNone
		}
		return p.object(depth)
	case c == '[':
		if depth >= maxDepth {
			return nil, stateNone
		}
		return p.array(depth)
	case c == '"':
		s, ok := p.str()
		if !ok {
			return nil, stateNone
		}
		return s, stateComplete
	case c == '-' || (c >= '0' && c <= '9'):
		return p.number(depth == 0)
	case c == 't':
		return p.literal("true", true)
	case c == 'f':
		return p.literal("false", false)
	case c == 'n':
		return p.literal("null", nil)
	default:
		return nil, stateNone
	}
}

func (p *parser) object(depth int) (any, state) {
	obj := map[string]any{}
	p.pos++ // '{'
	for {
		p.skipSpace()
		if p.eof() {
			return obj, statePartial
		}
		switch p.s[p.pos] {
		case '}':
			p.pos++
			return obj, stateComplete
		case ',':
			p.pos++
			continue
		case '"':
		default:
			return obj, statePartial
		}

		key, ok := p.str()
		if !ok {
			return obj, statePartial
		}
		p.skipSpace()
		if p.eof() || p.s[p.pos] != ':' {
			return obj, statePartial
		}
		p.pos++

		v, st := p.value(depth + 1)
		switch st {
		case stateNone:
			return obj, statePartial
		case statePartial:
			obj[key] = v
			return obj, statePartial
		}
		obj[key] = v
	}
}

func (p *parser) array(depth int) (any, state) {
	arr := []any{}
	p.pos++ // '['
	for {
		p.skipSpace()
		if p.eof() {
			return arr, statePartial
		}
		switch p.s[p.pos] {
		case ']':
			p.pos++
			return arr, stateComplete
		case ',':
			p.pos++
			continue
		}

		v, st := p.value(depth + 1)
		switch st {
		case stateNone:
			return arr, statePartial
		case statePartial:
			return append(arr, v), statePartial
		}
		arr = append(arr, v)
	}
}

// str scans a string literal starting at the opening quote. It reports false
// when the literal is unterminated or carries an invalid escape.
func (p *parser) str() (string, bool) {
	start := p.pos
	i := p.pos + 1
	escaped := false
	for ; i < len(p.s); i++ {
		c := p.s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			break
		}
	}
	if i >= len(p.s) {
		p.pos = len(p.s)
		return "", false
	}
	lit := p.s[start : i+1]
	p.pos = i + 1
	if !strings.ContainsRune(lit, '\\') {
		return lit[1 : len(lit)-1], true
	}
	var out string
	if err := json.Unmarshal([]byte(lit), &out); err != nil {
		return "", false
	}
	return out, true
}

// number scans a number literal. Nested numbers need a following delimiter
// to count as complete; a top-level number may be confirmed by end of input.
func (p *parser) number(topLevel bool) (any, state) {
	start := p.pos
	i := p.pos
	for i < len(p.s) && strings.IndexByte("+-0123456789.eE", p.s[i]) >= 0 {
		i++
	}
	lit := p.s[start:i]
	p.pos = i
	if i >= len(p.s) && !topLevel {
		return nil, stateNone
	}
	if !json.Valid([]byte(lit)) {
		return nil, stateNone
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, stateNone
	}
	return f, stateComplete
}

func (p *parser) literal(word string, v any) (any, state) {
	if strings.HasPrefix(p.s[p.pos:], word) {
		p.pos += len(word)
		return v, stateComplete
	}
	// Either a truncated spelling or garbage; neither yields a value.
	p.pos = len(p.s)
	return nil, stateNone
}
