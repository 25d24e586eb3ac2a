package dump

import (
	"go.uber.org/zap"
)

// Parse outcomes reported to an Observer.
const (
	OutcomeDecoded = "decoded"
	OutcomeLegacy  = "legacy"
	OutcomeDropped = "dropped"
	OutcomeEmpty   = "empty"
)

// Observer receives one outcome per record considered by the parser.
type Observer interface {
	ObserveRecord(schema, outcome string)
}

// Parser decodes dumps into records. All of its entry points are total: they
// log and return zero values instead of failing.
type Parser struct {
	logger   *zap.Logger
	observer Observer
}

// NewParser builds a Parser. Both arguments are optional.
func NewParser(logger *zap.Logger, observer Observer) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger, observer: observer}
}

var defaultParser = NewParser(nil, nil)

func orDefault(p *Parser) *Parser {
	if p == nil {
		return defaultParser
	}
	return p
}

func (p *Parser) observe(schema, outcome string) {
	if p.observer != nil {
		p.observer.ObserveRecord(schema, outcome)
	}
}

// Parse decodes a single record. The positional struct shape is preferred;
// the legacy named-field shape is tried only when no struct body exists.
func Parse[T any](p *Parser, s *Schema[T], raw string) (out T, ok bool) {
	p = orDefault(p)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("parse panic", zap.String("schema", s.Name), zap.Any("panic", r))
			var zero T
			out, ok = zero, false
		}
	}()

	if slots, found := structSlots(raw); found {
		rec, mapped := s.mapSlots(slots, p.logger)
		if !mapped {
			p.observe(s.Name, OutcomeDropped)
			p.logger.Debug("record dropped", zap.String("schema", s.Name), zap.Int("slots", len(slots)))
			return out, false
		}
		p.observe(s.Name, OutcomeDecoded)
		return s.Build(rec), true
	}

	rec, mapped := s.mapLegacy(raw, p.logger)
	if !mapped {
		p.observe(s.Name, OutcomeDropped)
		p.logger.Debug("no struct body and no legacy identity", zap.String("schema", s.Name))
		return out, false
	}
	p.observe(s.Name, OutcomeLegacy)
	return s.Build(rec), true
}

// ParseMany decodes every element of the slice whose element type is s.Name.
// The result is never nil. Elements that fail to map are skipped.
func ParseMany[T any](p *Parser, s *Schema[T], raw string) (out []T) {
	p = orDefault(p)
	out = make([]T, 0)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("parse many panic", zap.String("schema", s.Name), zap.Any("panic", r))
		}
	}()

	region, found := sliceRegion(raw, s.suffix)
	if !found {
		p.observe(s.Name, OutcomeEmpty)
		p.logger.Debug("slice not found", zap.String("schema", s.Name))
		return out
	}

	for i, elem := range elements(region) {
		slots, ok := structSlots(elem)
		if !ok {
			p.observe(s.Name, OutcomeDropped)
			continue
		}
		rec, mapped := s.mapSlots(slots, p.logger)
		if !mapped {
			p.observe(s.Name, OutcomeDropped)
			p.logger.Debug("element dropped", zap.String("schema", s.Name), zap.Int("index", i), zap.Int("slots", len(slots)))
			continue
		}
		p.observe(s.Name, OutcomeDecoded)
		out = append(out, s.Build(rec))
	}
	return out
}
