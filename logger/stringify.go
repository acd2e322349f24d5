package logger

import (
	"encoding/json"
	"fmt"
)

// Stringify renders an arbitrary payload as a log-safe string. It never
// panics: values that cannot be marshaled (cycles, channels, funcs) fall
// back to a type placeholder instead of propagating the failure.
func Stringify(v interface{}) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("<unserializable %T>", v)
		}
	}()

	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case error:
		return t.Error()
	case fmt.Stringer:
		return t.String()
	}

	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<unserializable %T>", v)
	}
	return string(b)
}
