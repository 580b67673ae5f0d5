// Package jsonrepair turns loosely formatted model output into parseable JSON.
//
// The repair is best effort: it handles code fences, surrounding prose, trailing commas,
// unquoted scalar values and trailing content after the closed structure. Anything else
// is reported as a decode error.
package jsonrepair

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

const fence = "```"

// ErrNoStructure is returned when the input holds neither a closed array nor a closed object.
var ErrNoStructure = errors.New("no json array or object found")

var numberPattern = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// Repair returns the outermost JSON array (or, failing that, object) found in raw,
// with common formatting defects fixed.
func Repair(raw string) (string, error) {
	text := stripFences(strings.TrimSpace(raw))

	body, ok := outermost(text, '[', ']')
	if !ok {
		body, ok = outermost(text, '{', '}')
	}
	if !ok {
		return "", ErrNoStructure
	}

	return fixDefects(body), nil
}

// RepairObject is Repair restricted to the outermost object.
func RepairObject(raw string) (string, error) {
	body, ok := outermost(stripFences(strings.TrimSpace(raw)), '{', '}')
	if !ok {
		return "", ErrNoStructure
	}

	return fixDefects(body), nil
}

// Decode repairs raw and unmarshals the result into v.
func Decode(raw string, v any) error {
	return decode(Repair, raw, v)
}

// DecodeObject repairs the outermost object in raw and unmarshals it into v.
func DecodeObject(raw string, v any) error {
	return decode(RepairObject, raw, v)
}

func decode(repair func(string) (string, error), raw string, v any) error {
	repaired, err := repair(raw)
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("decode repaired json: %w", err)
	}

	return nil
}

func fixDefects(body string) string {
	body = dropTrailingCommas(body)
	body = quoteBareValues(body)
	body = discardTrailing(body)

	return strings.TrimSpace(body)
}

func stripFences(s string) string {
	start := strings.Index(s, fence)
	if start == -1 {
		return s
	}

	rest := s[start+len(fence):]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		rest = rest[nl+1:]
	} else {
		rest = strings.TrimLeftFunc(rest, unicode.IsLetter)
	}

	if end := strings.Index(rest, fence); end != -1 {
		rest = rest[:end]
	}

	return strings.TrimSpace(rest)
}

// outermost returns the balanced structure starting at the first opener in s.
func outermost(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
	if start == -1 {
		return "", false
	}

	end, ok := closingIndex(s, start, open, close)
	if !ok {
		return "", false
	}

	return s[start : end+1], true
}

// closingIndex scans from start, ignoring brackets inside string literals, and reports
// the index where the depth of open/close returns to zero.
func closingIndex(s string, start int, open, close byte) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}

	return 0, false
}

func dropTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	scan(s, func(i int, c byte, inString bool) {
		if !inString && c == ',' {
			next := skipSpace(s, i+1)
			if next < len(s) && (s[next] == '}' || s[next] == ']') {
				return
			}
		}
		b.WriteByte(c)
	})

	return b.String()
}

func quoteBareValues(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		b.WriteByte(c)

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		if c == '"' {
			inString = true
			continue
		}
		if c != ':' {
			continue
		}

		j := skipSpace(s, i+1)
		b.WriteString(s[i+1 : j])
		i = j - 1

		if j >= len(s) || strings.IndexByte(`"{[`, s[j]) != -1 {
			continue
		}

		end := j
		for end < len(s) && strings.IndexByte(",}]\n\r", s[end]) == -1 {
			end++
		}

		token := s[j:end]
		value := strings.TrimRightFunc(token, unicode.IsSpace)
		if value == "" || isLiteral(value) {
			b.WriteString(token)
		} else {
			quoted, _ := json.Marshal(value)
			b.Write(quoted)
			b.WriteString(token[len(value):])
		}
		i = end - 1
	}

	return b.String()
}

func discardTrailing(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}

	open := s[0]
	var close byte
	switch open {
	case '[':
		close = ']'
	case '{':
		close = '}'
	default:
		return s
	}

	if end, ok := closingIndex(s, 0, open, close); ok {
		return s[:end+1]
	}
	return s
}

func isLiteral(v string) bool {
	switch v {
	case "true", "false", "null":
		return true
	}
	return numberPattern.MatchString(v)
}

// scan calls fn for every byte of s, reporting whether the byte belongs to a string literal.
func scan(s string, fn func(i int, c byte, inString bool)) {
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			fn(i, c, true)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		if c == '"' {
			inString = true
			fn(i, c, true)
			continue
		}
		fn(i, c, false)
	}
}

func skipSpace(s string, i int) int {
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return i
}
