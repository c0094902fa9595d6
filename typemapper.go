package trino

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TypeArgument is one element of a TypeSignature's Arguments, carrying a
// nested TypeSignature for container types (array/row/map).
type TypeArgument struct {
	Value TypeSignature `json:"value"`
}

// TypeSignature recursively describes a column's logical wire type: a
// RawType ("bigint", "array", "row", ...) plus, for container types, the
// element TypeSignatures in Arguments (spec §4.5, GLOSSARY).
type TypeSignature struct {
	RawType   string         `json:"rawType"`
	Arguments []TypeArgument `json:"arguments"`
}

// Column describes one result column: its name and its recursive type
// signature (spec §3, §6).
type Column struct {
	Name          string        `json:"name"`
	Type          string        `json:"type"`
	TypeSignature TypeSignature `json:"typeSignature"`
}

var timeWithZoneRE = regexp.MustCompile(`^(.*)([+-])(\d{2}):(\d{2})$`)

const (
	dateLayout            = "2006-01-02"
	naiveTimestampLayout  = "2006-01-02 15:04:05.999999"
	offsetTimestampLayout = "2006-01-02 15:04:05.999999 -07:00"
	timeLayout            = "15:04:05.999999"
)

// MapValue converts a raw JSON-decoded cell value plus its column's
// TypeSignature into a typed Go value, per the dispatch table in spec
// §4.5. null maps to nil. Parsing failures return a DataConversionError
// naming the original value and the target type.
func MapValue(value any, col Column) (any, error) {
	if value == nil {
		return nil, nil
	}

	rawType := col.TypeSignature.RawType

	switch v := value.(type) {
	case []any:
		switch rawType {
		case "array":
			elemType := elementTypeSignature(col, 0)
			out := make([]any, len(v))
			for i, item := range v {
				mapped, err := MapValue(item, Column{TypeSignature: elemType})
				if err != nil {
					return nil, err
				}
				out[i] = mapped
			}
			return out, nil
		case "row":
			out := make([]any, len(v))
			for i, item := range v {
				elemType := elementTypeSignature(col, i)
				mapped, err := MapValue(item, Column{TypeSignature: elemType})
				if err != nil {
					return nil, err
				}
				out[i] = mapped
			}
			return out, nil
		}
		return v, nil

	case map[string]any:
		if rawType != "map" {
			return v, nil
		}
		keyType := elementTypeSignature(col, 0)
		valueType := elementTypeSignature(col, 1)
		out := make(map[string]any, len(v))
		for k, item := range v {
			mappedValue, err := MapValue(item, Column{TypeSignature: valueType})
			if err != nil {
				return nil, err
			}
			// Keys arrive as JSON object keys (always strings on the
			// wire); each is mapped through the declared key type and,
			// when the result is not a string, stored under its
			// fmt.Sprint form.
			mappedKey, err := MapValue(k, Column{TypeSignature: keyType})
			if err != nil {
				return nil, err
			}
			if ks, ok := mappedKey.(string); ok {
				out[ks] = mappedValue
			} else {
				out[fmt.Sprint(mappedKey)] = mappedValue
			}
		}
		return out, nil

	case string:
		return mapScalarString(v, rawType)

	default:
		return v, nil
	}
}

func elementTypeSignature(col Column, index int) TypeSignature {
	if index < len(col.TypeSignature.Arguments) {
		return col.TypeSignature.Arguments[index].Value
	}
	return TypeSignature{}
}

func mapScalarString(value, rawType string) (any, error) {
	switch {
	case strings.Contains(rawType, "decimal"):
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, NewDataConversionError(value, rawType, err)
		}
		return d, nil

	case rawType == "double":
		switch value {
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		case "NaN":
			return math.NaN(), nil
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, NewDataConversionError(value, rawType, err)
		}
		return f, nil

	case rawType == "date":
		t, err := time.Parse(dateLayout, value)
		if err != nil {
			return nil, NewDataConversionError(value, rawType, err)
		}
		return t, nil

	case rawType == "timestamp with time zone":
		idx := strings.LastIndex(value, " ")
		if idx < 0 {
			return nil, NewDataConversionError(value, rawType, fmt.Errorf("missing time zone suffix"))
		}
		dt, tz := value[:idx], value[idx+1:]
		if strings.HasPrefix(tz, "+") || strings.HasPrefix(tz, "-") {
			t, err := time.Parse(offsetTimestampLayout, value)
			if err != nil {
				return nil, NewDataConversionError(value, rawType, err)
			}
			return t, nil
		}
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, NewDataConversionError(value, rawType, err)
		}
		t, err := time.ParseInLocation(naiveTimestampLayout, dt, loc)
		if err != nil {
			return nil, NewDataConversionError(value, rawType, err)
		}
		return t, nil

	case strings.Contains(rawType, "timestamp"):
		t, err := time.Parse(naiveTimestampLayout, value)
		if err != nil {
			return nil, NewDataConversionError(value, rawType, err)
		}
		return t, nil

	case strings.Contains(rawType, "time with time zone"):
		m := timeWithZoneRE.FindStringSubmatch(value)
		if m == nil {
			return nil, NewDataConversionError(value, rawType, fmt.Errorf("unrecognized time-with-zone format"))
		}
		clock, sign, hh, mm := m[1], m[2], m[3], m[4]
		t, err := time.Parse(timeLayout, clock)
		if err != nil {
			return nil, NewDataConversionError(value, rawType, err)
		}
		offsetSeconds, err := parseOffsetSeconds(sign, hh, mm)
		if err != nil {
			return nil, NewDataConversionError(value, rawType, err)
		}
		offsetName := fmt.Sprintf("%s%s:%s", sign, hh, mm)
		loc := time.FixedZone(offsetName, offsetSeconds)
		zoned := time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
		return zoned, nil

	case strings.Contains(rawType, "time"):
		t, err := time.Parse(timeLayout, value)
		if err != nil {
			return nil, NewDataConversionError(value, rawType, err)
		}
		return t, nil

	default:
		return value, nil
	}
}

func parseOffsetSeconds(sign, hh, mm string) (int, error) {
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, err
	}
	total := h*3600 + m*60
	if sign == "-" {
		total = -total
	}
	return total, nil
}
