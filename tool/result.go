package tool

import (
	"encoding/json"
	"reflect"

	"github.com/tidwall/sjson"
)

// JSONResult renders a handler result as JSON content.
// Maps and structs are marshalled as they are; anything else becomes {"result": v}.
func JSONResult(v any) (string, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Struct:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		return sjson.Set("{}", "result", v)
	}
}

// JSONErrors renders handler errors as {"error": message}.
func JSONErrors(err error) string {
	out, setErr := sjson.Set("{}", "error", err.Error())
	if setErr != nil {
		return err.Error()
	}
	return out
}

// PlainErrors renders handler errors as the bare message.
func PlainErrors(err error) string {
	return err.Error()
}
