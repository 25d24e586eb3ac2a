package dump

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind selects how a slot is decoded.
type Kind int

const (
	KindIgnore Kind = iota
	KindUint
	KindInt
	KindBool
	KindString
	KindAddress
	KindRef
)

// RecentToken is the display value of every ref(...) slot. Referenced objects
// are not resolved locally.
const RecentToken = "Recent"

var (
	uintRe    = regexp.MustCompile(`(?:^|[^\w.-])(\d+)`)
	intRe     = regexp.MustCompile(`(?:^|[^\w.-])(-?\d+)`)
	boolRe    = regexp.MustCompile(`\b(true|false)\b`)
	stringRe  = regexp.MustCompile(`"([^"]*)"`)
	addressRe = regexp.MustCompile(`"([^"]+)"|\b([a-z0-9]{40})\b`)
)

func (k Kind) String() string {
	switch k {
	case KindUint:
		return "uint"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindAddress:
		return "address"
	case KindRef:
		return "ref"
	default:
		return "ignore"
	}
}

// Field is one decoded slot. Text holds the decoded value in its display form;
// Ref holds the raw inner content of a ref(...) slot.
type Field struct {
	Kind  Kind
	Text  string
	Ref   string
	Valid bool
}

// Decode extracts a value of the given kind from a raw slot. It never fails;
// a slot that does not match yields a Field with Valid unset.
func Decode(slot string, kind Kind) Field {
	f := Field{Kind: kind}
	switch kind {
	case KindUint:
		f.Text, f.Valid = firstGroup(uintRe, slot)
	case KindInt:
		f.Text, f.Valid = firstGroup(intRe, slot)
	case KindBool:
		f.Text, f.Valid = firstGroup(boolRe, slot)
	case KindString:
		f.Text, f.Valid = firstGroup(stringRe, slot)
	case KindAddress:
		f.Text, f.Valid = firstGroup(addressRe, slot)
	case KindRef:
		trimmed := strings.TrimSpace(slot)
		if strings.HasPrefix(trimmed, "ref(") {
			if n := balancedLen(trimmed); n > 0 {
				f.Ref = trimmed[len("ref(") : n-1]
			} else {
				f.Ref = trimmed[len("ref("):]
			}
			f.Text = RecentToken
			f.Valid = true
		}
	}
	return f
}

// firstGroup returns the first non-empty capture group of the leftmost match.
// A match whose groups are all empty still counts, which keeps "" strings valid.
func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	for _, g := range m[1:] {
		if g != "" {
			return g, true
		}
	}
	return "", true
}

// Or returns the decoded text, or def when the field did not decode.
func (f Field) Or(def string) string {
	if !f.Valid {
		return def
	}
	return f.Text
}

func (f Field) Bool() bool {
	return f.Valid && f.Text == "true"
}

func (f Field) Uint() uint64 {
	if !f.Valid {
		return 0
	}
	n, err := strconv.ParseUint(f.Text, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (f Field) Int() int64 {
	if !f.Valid {
		return 0
	}
	n, err := strconv.ParseInt(f.Text, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
