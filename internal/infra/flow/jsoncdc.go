package flow

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vietddude/flowpanel/internal/core/domain"
)

// MaxUFix64 is the largest value a UFix64 can hold.
var MaxUFix64 = decimal.RequireFromString("184467440737.09551615")

// ufix64Scale is the number of fractional digits of a UFix64.
const ufix64Scale = 8

// ErrInvalidUFix64 is returned for amounts a UFix64 cannot represent exactly.
var ErrInvalidUFix64 = errors.New("invalid UFix64")

// DecodeError reports a response or JSON-Cadence value that could not be decoded.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Value is a JSON-Cadence encoded value.
type Value struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// AddressValue encodes a Flow address.
func AddressValue(addr string) Value {
	return Value{Type: "Address", Value: addr}
}

// StringValue encodes a Cadence String.
func StringValue(s string) Value {
	return Value{Type: "String", Value: s}
}

// UFix64Value encodes d with exactly eight fractional digits.
func UFix64Value(d decimal.Decimal) (Value, error) {
	if d.IsNegative() || d.GreaterThan(MaxUFix64) {
		return Value{}, fmt.Errorf("%w: %s out of range", ErrInvalidUFix64, d)
	}
	if !d.Equal(d.Truncate(ufix64Scale)) {
		return Value{}, fmt.Errorf("%w: %s has more than %d decimals", ErrInvalidUFix64, d, ufix64Scale)
	}
	return Value{Type: "UFix64", Value: d.StringFixed(ufix64Scale)}, nil
}

// PathValue encodes a storage or public path.
func PathValue(p domain.Path) Value {
	return Value{Type: "Path", Value: p}
}

// ArrayValue encodes a Cadence array.
func ArrayValue(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Type: "Array", Value: items}
}

// ParsePath parses "/storage/identifier" or "/public/identifier".
func ParsePath(s string) (domain.Path, error) {
	parts := strings.Split(strings.TrimPrefix(s, "/"), "/")
	if len(parts) != 2 || parts[1] == "" {
		return domain.Path{}, fmt.Errorf("invalid path %q", s)
	}
	switch parts[0] {
	case "storage", "public", "private":
	default:
		return domain.Path{}, fmt.Errorf("invalid path domain %q", parts[0])
	}
	return domain.Path{Domain: parts[0], Identifier: parts[1]}, nil
}

// EncodeArguments renders values as the base64 strings the Access API expects.
func EncodeArguments(values []Value) ([]string, error) {
	args := make([]string, 0, len(values))
	for _, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal argument: %w", err)
		}
		args = append(args, base64.StdEncoding.EncodeToString(data))
	}
	return args, nil
}

// rawValue is the generic shape of every JSON-Cadence value.
type rawValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type compositeValue struct {
	ID     string `json:"id"`
	Fields []struct {
		Name  string          `json:"name"`
		Value json.RawMessage `json:"value"`
	} `json:"fields"`
}

type entryValue struct {
	Key   json.RawMessage `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Decode converts JSON-Cadence into plain Go values: composites and
// dictionaries become map[string]any, arrays []any, numbers and addresses
// strings, paths {"domain","identifier"} maps, types their type id.
func Decode(data []byte) (any, error) {
	v, err := decodeValue(data)
	if err != nil {
		return nil, &DecodeError{What: "json-cadence", Err: err}
	}
	return v, nil
}

// DecodeBase64 decodes a base64 encoded JSON-Cadence value.
func DecodeBase64(s string) (any, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, &DecodeError{What: "base64 value", Err: err}
	}
	return Decode(data)
}

func decodeValue(data []byte) (any, error) {
	var raw rawValue
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	switch raw.Type {
	case "Void":
		return nil, nil

	case "Optional":
		if len(raw.Value) == 0 || string(raw.Value) == "null" {
			return nil, nil
		}
		return decodeValue(raw.Value)

	case "Bool":
		var b bool
		err := json.Unmarshal(raw.Value, &b)
		return b, err

	case "String", "Character", "Address",
		"Int", "Int8", "Int16", "Int32", "Int64", "Int128", "Int256",
		"UInt", "UInt8", "UInt16", "UInt32", "UInt64", "UInt128", "UInt256",
		"Word8", "Word16", "Word32", "Word64", "Word128", "Word256",
		"Fix64", "UFix64":
		var s string
		err := json.Unmarshal(raw.Value, &s)
		return s, err

	case "Array":
		var items []json.RawMessage
		if err := json.Unmarshal(raw.Value, &items); err != nil {
			return nil, err
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			v, err := decodeValue(item)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil

	case "Dictionary":
		var entries []entryValue
		if err := json.Unmarshal(raw.Value, &entries); err != nil {
			return nil, err
		}
		out := make(map[string]any, len(entries))
		for _, e := range entries {
			k, err := decodeValue(e.Key)
			if err != nil {
				return nil, fmt.Errorf("dictionary key: %w", err)
			}
			v, err := decodeValue(e.Value)
			if err != nil {
				return nil, fmt.Errorf("dictionary[%v]: %w", k, err)
			}
			out[fmt.Sprint(k)] = v
		}
		return out, nil

	case "Struct", "Resource", "Event", "Contract", "Enum":
		var comp compositeValue
		if err := json.Unmarshal(raw.Value, &comp); err != nil {
			return nil, err
		}
		out := make(map[string]any, len(comp.Fields))
		for _, f := range comp.Fields {
			v, err := decodeValue(f.Value)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", comp.ID, f.Name, err)
			}
			out[f.Name] = v
		}
		return out, nil

	case "Path":
		var p domain.Path
		if err := json.Unmarshal(raw.Value, &p); err != nil {
			return nil, err
		}
		return map[string]any{"domain": p.Domain, "identifier": p.Identifier}, nil

	case "Type":
		var t struct {
			StaticType json.RawMessage `json:"staticType"`
		}
		if err := json.Unmarshal(raw.Value, &t); err != nil {
			return nil, err
		}
		return typeID(t.StaticType), nil

	default:
		return nil, fmt.Errorf("unsupported type %q", raw.Type)
	}
}

// typeID extracts the identifier from a static type, which is either a bare
// string or an object carrying "typeID".
func typeID(data json.RawMessage) string {
	var s string
	if json.Unmarshal(data, &s) == nil {
		return s
	}
	var obj struct {
		TypeID string `json:"typeID"`
	}
	_ = json.Unmarshal(data, &obj)
	return obj.TypeID
}
