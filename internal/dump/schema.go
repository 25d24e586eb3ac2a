package dump

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// FieldSpec describes one positional field. Legacy, when set, extracts the
// same field from the named "Field:value" dump shape.
type FieldSpec struct {
	Name   string
	Kind   Kind
	Legacy *regexp.Regexp
}

// Schema maps decoded slots onto a record of type T.
type Schema[T any] struct {
	// Name is the element type name expected after a slice's closing bracket.
	Name     string
	Fields   []FieldSpec
	Identity int
	// Exact rejects structs with more slots than fields.
	Exact bool
	Build func(Record) T

	suffix *regexp.Regexp
	index  map[string]int
}

// NewSchema builds a schema. It panics on an identity index outside fields,
// since schemas are declared once at package init.
func NewSchema[T any](name string, identity int, exact bool, fields []FieldSpec, build func(Record) T) *Schema[T] {
	if identity < 0 || identity >= len(fields) {
		panic("dump: identity field out of range for schema " + name)
	}
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f.Name] = i
	}
	return &Schema[T]{
		Name:     name,
		Fields:   fields,
		Identity: identity,
		Exact:    exact,
		Build:    build,
		suffix:   suffixPattern(name),
		index:    index,
	}
}

// Record is a decoded struct handed to a schema's Build function.
type Record struct {
	schema string
	fields []Field
	index  map[string]int
	logger *zap.Logger
}

// Get returns the field by name, or an invalid Field for unknown names.
func (r Record) Get(name string) Field {
	i, ok := r.index[name]
	if !ok || i >= len(r.fields) {
		return Field{}
	}
	return r.fields[i]
}

// At returns the field at position i.
func (r Record) At(i int) Field {
	if i < 0 || i >= len(r.fields) {
		return Field{}
	}
	return r.fields[i]
}

// Warn reports a recoverable oddity found while building the record.
func (r Record) Warn(msg string, fields ...zap.Field) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(msg, append(fields, zap.String("schema", r.schema))...)
}

func (s *Schema[T]) mapSlots(slots []string, logger *zap.Logger) (Record, bool) {
	if len(slots) < len(s.Fields) || (s.Exact && len(slots) != len(s.Fields)) {
		return Record{}, false
	}
	fields := make([]Field, len(s.Fields))
	for i, spec := range s.Fields {
		fields[i] = Decode(slots[i], spec.Kind)
	}
	if !fields[s.Identity].Valid {
		return Record{}, false
	}
	return Record{schema: s.Name, fields: fields, index: s.index, logger: logger}, true
}

// mapLegacy decodes the named-field shape. Numeric kinds keep the captured text
// even when it is not a number so builders can fall back to labels.
func (s *Schema[T]) mapLegacy(raw string, logger *zap.Logger) (Record, bool) {
	fields := make([]Field, len(s.Fields))
	for i, spec := range s.Fields {
		fields[i] = Field{Kind: spec.Kind}
		if spec.Legacy == nil {
			continue
		}
		text, ok := firstGroup(spec.Legacy, raw)
		if !ok {
			continue
		}
		text = strings.TrimSpace(text)
		switch spec.Kind {
		case KindUint, KindInt, KindBool:
			fields[i] = Decode(text, spec.Kind)
			if !fields[i].Valid {
				fields[i].Text = text
			}
		case KindAddress:
			fields[i] = Field{Kind: spec.Kind, Text: text, Valid: text != ""}
		case KindRef:
			fields[i] = Field{Kind: spec.Kind, Text: text, Ref: text, Valid: text != ""}
		default:
			fields[i] = Field{Kind: spec.Kind, Text: text, Valid: true}
		}
	}
	if !fields[s.Identity].Valid {
		return Record{}, false
	}
	return Record{schema: s.Name, fields: fields, index: s.index, logger: logger}, true
}
