package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMalformedArgs is returned when inbound arguments are not a JSON array.
var ErrMalformedArgs = errors.New("arguments must be a JSON array")

// Args is the positional argument list of a call, kept as JSON.
type Args struct {
	raw gjson.Result
}

// ParseArgs validates and wraps a JSON array. An empty string is an empty
// argument list.
func ParseArgs(data string) (Args, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		data = "[]"
	}
	if !gjson.Valid(data) {
		return Args{}, fmt.Errorf("%w: invalid JSON", ErrMalformedArgs)
	}
	res := gjson.Parse(data)
	if !res.IsArray() {
		return Args{}, fmt.Errorf("%w: got %s", ErrMalformedArgs, res.Type)
	}
	return Args{raw: res}, nil
}

// NewArgs builds an argument list from Go values.
func NewArgs(values ...any) (Args, error) {
	if values == nil {
		values = []any{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return Args{}, fmt.Errorf("encoding arguments: %w", err)
	}
	return ParseArgs(string(data))
}

// MustArgs is NewArgs for literals known to encode.
func MustArgs(values ...any) Args {
	a, err := NewArgs(values...)
	if err != nil {
		panic(err)
	}
	return a
}

// Len returns the number of arguments.
func (a Args) Len() int {
	if !a.raw.Exists() {
		return 0
	}
	return len(a.raw.Array())
}

// Get returns argument i, or an empty result when out of range.
func (a Args) Get(i int) gjson.Result {
	arr := a.raw.Array()
	if i < 0 || i >= len(arr) {
		return gjson.Result{}
	}
	return arr[i]
}

// String returns argument i as a string.
func (a Args) String(i int) string { return a.Get(i).String() }

// Bool returns argument i as a bool.
func (a Args) Bool(i int) bool { return a.Get(i).Bool() }

// Int returns argument i as an integer.
func (a Args) Int(i int) int64 { return a.Get(i).Int() }

// Values returns the arguments as plain Go values.
func (a Args) Values() []any {
	arr := a.raw.Array()
	out := make([]any, len(arr))
	for i, v := range arr {
		out[i] = v.Value()
	}
	return out
}

// Raw returns the JSON text of the argument list.
func (a Args) Raw() string {
	if a.raw.Raw == "" {
		return "[]"
	}
	return a.raw.Raw
}
