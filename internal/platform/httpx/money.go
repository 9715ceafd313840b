package httpx

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/storeledger/internal/ledger"
)

var (
	decimalType   = reflect.TypeOf(decimal.Decimal{})
	marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
)

// FixedMoney returns a JSON-ready copy of v in which every decimal.Decimal
// is a string with exactly ledger.MoneyPlaces fractional digits ("30.00",
// not "30"). Structs become maps keyed by their JSON field names.
func FixedMoney(v any) any {
	if v == nil {
		return nil
	}
	return fixMoney(reflect.ValueOf(v))
}

func fixMoney(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	if v.Type() == decimalType {
		return v.Interface().(decimal.Decimal).StringFixed(ledger.MoneyPlaces)
	}
	if k := v.Kind(); k != reflect.Pointer && k != reflect.Interface && implementsMarshaler(v.Type()) {
		return v.Interface()
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return fixMoney(v.Elem())
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface()
		}
		return fixElems(v)
	case reflect.Array:
		return fixElems(v)
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		if v.Type().Key().Kind() != reflect.String {
			return v.Interface()
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = fixMoney(iter.Value())
		}
		return out
	case reflect.Struct:
		out := make(map[string]any, v.NumField())
		fixFields(out, v)
		return out
	default:
		return v.Interface()
	}
}

func fixElems(v reflect.Value) []any {
	out := make([]any, v.Len())
	for i := range out {
		out[i] = fixMoney(v.Index(i))
	}
	return out
}

// fixFields flattens embedded structs first so the outer struct's fields
// win on name clashes, as encoding/json does.
func fixFields(out map[string]any, v reflect.Value) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !promoted(f) {
			continue
		}
		fv := v.Field(i)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		fixFields(out, fv)
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || promoted(f) {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" && opts == "" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fv := v.Field(i)
		if hasOption(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}
		out[name] = fixMoney(fv)
	}
}

// promoted reports whether encoding/json would inline f's fields.
func promoted(f reflect.StructField) bool {
	if !f.Anonymous || f.Tag.Get("json") != "" {
		return false
	}
	t := f.Type
	if t.Kind() == reflect.Pointer {
		if !f.IsExported() {
			return false
		}
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct && !implementsMarshaler(t)
}

func implementsMarshaler(t reflect.Type) bool {
	return t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType)
}

func hasOption(opts, want string) bool {
	for _, opt := range strings.Split(opts, ",") {
		if opt == want {
			return true
		}
	}
	return false
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return v.IsZero()
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}
