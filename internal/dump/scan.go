package dump

import (
	"regexp"
	"strings"
)

const (
	structAnchor = "struct{"
	sliceAnchor  = "slice["
	refAnchor    = "(&(struct"
)

// Slots returns the top-level value slots of the first struct body in s.
// A slot is the text inside one depth-1 parenthesised value, trimmed. Quoted
// text is not special-cased: parentheses inside string literals shift depth.
func Slots(s string) []string {
	slots, _ := structSlots(s)
	return slots
}

func structSlots(s string) ([]string, bool) {
	start := strings.Index(s, structAnchor)
	if start < 0 {
		return nil, false
	}
	return scanSlots(s[start+len(structAnchor):], '}')
}

// scanSlots collects depth-1 groups until closer is seen at depth 0. A zero
// closer scans to the end of s.
func scanSlots(s string, closer byte) ([]string, bool) {
	slots := make([]string, 0, 10)
	var cur strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '(':
			depth++
			if depth == 1 {
				cur.Reset()
				continue
			}
		case c == ')':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				slots = append(slots, strings.TrimSpace(cur.String()))
				continue
			}
		case closer != 0 && c == closer && depth == 0:
			return slots, true
		}
		if depth > 0 {
			cur.WriteByte(c)
		}
	}
	if closer != 0 {
		return nil, false
	}
	return slots, true
}

// balancedLen returns the length of the parenthesised group that opens at or
// after s[0], or -1 when s ends before it closes. Braces are not counted.
func balancedLen(s string) int {
	depth := 0
	opened := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
			opened = true
		case ')':
			depth--
			if opened && depth == 0 {
				return i + 1
			}
			if depth < 0 {
				return -1
			}
		}
	}
	return -1
}

// structLen returns the length of a bare struct{...} starting at s[0]. The
// body ends at the first '}' outside any parenthesised value.
func structLen(s string) int {
	if !strings.HasPrefix(s, structAnchor) {
		return -1
	}
	depth := 0
	for i := len(structAnchor); i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '}':
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

func suffixPattern(typeName string) *regexp.Regexp {
	return regexp.MustCompile(`^\s*\[\]\*?(?:[\w./-]*[./])?` + regexp.QuoteMeta(typeName) + `\b`)
}

// sliceRegion returns the body of the first slice[...] whose closing bracket is
// followed by a type suffix matching suffix.
func sliceRegion(s string, suffix *regexp.Regexp) (string, bool) {
	offset := 0
	for {
		idx := strings.Index(s[offset:], sliceAnchor)
		if idx < 0 {
			return "", false
		}
		start := offset + idx + len(sliceAnchor)
		end := closingBracket(s[start:])
		if end < 0 {
			return "", false
		}
		if suffix.MatchString(s[start+end+1:]) {
			return s[start : start+end], true
		}
		offset = start
	}
}

func closingBracket(s string) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case ']':
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// elements splits a slice body into complete element texts. Each element
// starts at a pointer-wrapped or bare struct anchor; the cursor skips past the
// whole element so nested structs never start a new one. An element that never
// closes is skipped and the scan resumes after its anchor.
func elements(region string) []string {
	out := make([]string, 0)
	cursor := 0
	for cursor < len(region) {
		rest := region[cursor:]
		start, anchor := nextAnchor(rest)
		if start < 0 {
			break
		}
		var n int
		if anchor == refAnchor {
			n = balancedLen(rest[start:])
		} else {
			n = structLen(rest[start:])
		}
		if n < 0 {
			cursor += start + len(anchor)
			continue
		}
		out = append(out, rest[start:start+n])
		cursor += start + n
	}
	return out
}

func nextAnchor(s string) (int, string) {
	ref := strings.Index(s, refAnchor)
	bare := strings.Index(s, structAnchor)
	switch {
	case ref < 0 && bare < 0:
		return -1, ""
	case ref < 0:
		return bare, structAnchor
	case bare < 0 || ref < bare:
		return ref, refAnchor
	default:
		return bare, structAnchor
	}
}
