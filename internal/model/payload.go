package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidPayload is returned when the reported data cannot be decoded
var ErrInvalidPayload = errors.New("invalid payload")

// PayloadKind names the shape of the reported data
type PayloadKind string

const (
	PayloadNumeric PayloadKind = "numeric"
	PayloadOutcome PayloadKind = "outcome"
	PayloadGeneric PayloadKind = "generic"
)

// Payload is the data under evaluation. It is one of NumericPayload,
// OutcomePayload or GenericPayload.
type Payload interface {
	Kind() PayloadKind
	// Canonical returns a stable JSON encoding (object keys sorted)
	Canonical() []byte
}

// NumericPayload carries a single number, e.g. a price or a temperature
type NumericPayload struct {
	Field  string                 `json:"field"`
	Value  float64                `json:"value"`
	Fields map[string]interface{} `json:"fields,omitempty"`
	raw    []byte
}

// OutcomePayload carries a categorical result, e.g. an event winner
type OutcomePayload struct {
	Outcome     string                 `json:"outcome"`
	Probability *float64               `json:"probability,omitempty"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
	raw         []byte
}

// GenericPayload passes arbitrary structured data through untouched
type GenericPayload struct {
	Value interface{} `json:"value"`
	raw   []byte
}

func (p NumericPayload) Kind() PayloadKind { return PayloadNumeric }
func (p OutcomePayload) Kind() PayloadKind { return PayloadOutcome }
func (p GenericPayload) Kind() PayloadKind { return PayloadGeneric }

func (p NumericPayload) Canonical() []byte { return p.raw }
func (p OutcomePayload) Canonical() []byte { return p.raw }
func (p GenericPayload) Canonical() []byte { return p.raw }

// numericFields are probed in order when looking for the primary value
var numericFields = []string{
	"value", "price", "rate", "amount", "temperature", "reading",
	"measurement", "level", "index", "quantity", "score",
}

// outcomeFields are probed in order when looking for a categorical result
var outcomeFields = []string{"outcome", "result", "winner", "status", "decision", "answer"}

var probabilityFields = []string{"probability", "confidence", "likelihood"}

// ParsePayload decodes raw JSON into one of the known payload shapes
func ParsePayload(raw json.RawMessage) (Payload, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%w: empty data", ErrInvalidPayload)
	}

	var decoded interface{}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	canonical, err := json.Marshal(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	switch v := decoded.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return NumericPayload{Field: "value", Value: f, raw: canonical}, nil

	case string:
		if f, ok := toFloat(v); ok {
			return NumericPayload{Field: "value", Value: f, raw: canonical}, nil
		}
		return OutcomePayload{Outcome: v, raw: canonical}, nil

	case map[string]interface{}:
		for _, name := range numericFields {
			if f, ok := lookupFloat(v, name); ok {
				return NumericPayload{Field: name, Value: f, Fields: v, raw: canonical}, nil
			}
		}
		for _, name := range outcomeFields {
			if s, ok := lookupString(v, name); ok {
				out := OutcomePayload{Outcome: s, Fields: v, raw: canonical}
				for _, pname := range probabilityFields {
					if f, ok := lookupFloat(v, pname); ok {
						out.Probability = &f
						break
					}
				}
				return out, nil
			}
		}
		return GenericPayload{Value: v, raw: canonical}, nil

	default:
		return GenericPayload{Value: v, raw: canonical}, nil
	}
}

// PrimaryValue extracts the number the accuracy factor compares against references
func PrimaryValue(p Payload) (float64, bool) {
	switch v := p.(type) {
	case NumericPayload:
		return v.Value, true
	case OutcomePayload:
		if v.Probability != nil {
			return *v.Probability, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// lookup finds key exactly, then case-insensitively in sorted key order so
// the same document always resolves to the same field
func lookup(m map[string]interface{}, key string) (interface{}, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.EqualFold(k, key) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, false
	}
	sort.Strings(keys)
	return m[keys[0]], true
}

func lookupFloat(m map[string]interface{}, key string) (float64, bool) {
	v, ok := lookup(m, key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case string:
		return toFloat(n)
	}
	return 0, false
}

func lookupString(m map[string]interface{}, key string) (string, bool) {
	v, ok := lookup(m, key)
	if !ok {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, s != ""
	case bool:
		return strconv.FormatBool(s), true
	}
	return "", false
}

func toFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
