package utils

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ConvertToFloat converts a decoded JSON value to float64. Strings are parsed
// after trimming surrounding whitespace, so "16.99" and " 5 " both convert.
func ConvertToFloat(val interface{}) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case []byte:
		return ConvertToFloat(string(v))
	default:
		return 0, fmt.Errorf("cannot convert %T to float", val)
	}
}

// ConvertToDecimal converts a decoded JSON value to an exact decimal.
func ConvertToDecimal(val interface{}) (decimal.Decimal, error) {
	switch v := val.(type) {
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case json.Number:
		return decimal.NewFromString(v.String())
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		f, err := ConvertToFloat(val)
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromFloat(f), nil
	}
}

// Truthy reports whether a decoded JSON value is non-empty: nil, false, 0,
// "" and empty containers are not.
func Truthy(val interface{}) bool {
	switch v := val.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case json.Number:
		f, err := v.Float64()
		return err != nil || f != 0
	case []interface{}:
		return len(v) > 0
	case map[string]interface{}:
		return len(v) > 0
	default:
		return true
	}
}

// NormalizeIdentifier maps a decoded JSON value to a comparable key usable in
// sets. Integers collapse onto float64 so 1 and 1.0 are the same key; objects
// and arrays are rejected.
func NormalizeIdentifier(val interface{}) (interface{}, bool) {
	switch v := val.(type) {
	case nil, string, bool, float64:
		return v, true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, true
		}
		return v.String(), true
	default:
		return nil, false
	}
}

// Stringify renders an identifier as a map key.
func Stringify(val interface{}) string {
	switch v := val.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func identifierRank(v interface{}) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

// SortIdentifiers orders normalized identifiers: nil, bools, numbers, strings.
func SortIdentifiers(ids []interface{}) {
	sort.SliceStable(ids, func(i, j int) bool {
		ri, rj := identifierRank(ids[i]), identifierRank(ids[j])
		if ri != rj {
			return ri < rj
		}
		switch a := ids[i].(type) {
		case bool:
			return !a && ids[j].(bool)
		case float64:
			return a < ids[j].(float64)
		case string:
			return a < ids[j].(string)
		default:
			return Stringify(ids[i]) < Stringify(ids[j])
		}
	})
}
