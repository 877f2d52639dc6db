package marketdata

import (
	"errors"
	"fmt"

	"github.com/golang/glog"
)

// chainField looks up a required field of an option chain JSON object and
// checks its decoded type. kind names the expected JSON type for errors.
func chainField[T any](
	obj map[string]interface{},
	field string,
	kind string) (T, error) {

	var zero T
	raw, ok := obj[field]
	if !ok {
		msg := fmt.Sprintf("Option chain field %s is missing.", field)
		glog.Error(msg)
		return zero, errors.New(msg)
	}
	value, ok := raw.(T)
	if !ok {
		msg := fmt.Sprintf("Option chain field %s should be a JSON %s, got %T.",
			field, kind, raw)
		glog.Error(msg)
		return zero, errors.New(msg)
	}
	return value, nil
}

func chainString(obj map[string]interface{}, field string) (string, error) {
	return chainField[string](obj, field, "string")
}

func chainNumber(obj map[string]interface{}, field string) (float64, error) {
	return chainField[float64](obj, field, "number")
}

func chainArray(obj map[string]interface{}, field string) ([]interface{}, error) {
	return chainField[[]interface{}](obj, field, "array")
}

func chainObject(
	obj map[string]interface{},
	field string) (map[string]interface{}, error) {

	return chainField[map[string]interface{}](obj, field, "object")
}

// quoteNumber reads an optional per-contract quote field. Exchanges leave
// illiquid contracts' fields out, so a missing or non numeric value is 0.
func quoteNumber(obj map[string]interface{}, field string) float64 {
	value, _ := obj[field].(float64)
	return value
}
