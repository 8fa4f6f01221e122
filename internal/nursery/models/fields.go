package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"longtrees/pkg/domain"
	dErrors "longtrees/pkg/domain-errors"
)

// Fields is the untyped field mapping a request body decodes into. JSON bodies
// produce strings, json.Number, bools and nested maps; form bodies produce
// strings only. Both go through the same readers.
type Fields map[string]any

// Sub returns the nested mapping stored under name, or nil.
func (f Fields) Sub(name string) Fields {
	switch v := f[name].(type) {
	case map[string]any:
		return Fields(v)
	case Fields:
		return v
	default:
		return nil
	}
}

// lookup treats absent keys, JSON null and blank strings alike, since an empty
// form input is how a browser sends an omitted value.
func (f Fields) lookup(name string) (any, bool) {
	v, ok := f[name]
	if !ok || v == nil {
		return nil, false
	}
	if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
		return nil, false
	}
	return v, true
}

// fieldReader reads typed values out of Fields. The first failure sticks and
// later reads become no-ops, so a parse function reads every field in order
// and checks err once.
type fieldReader struct {
	f   Fields
	err error
}

func newReader(f Fields) *fieldReader {
	if f == nil {
		f = Fields{}
	}
	return &fieldReader{f: f}
}

func (r *fieldReader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *fieldReader) str(name string, required bool) string {
	if r.err != nil {
		return ""
	}
	v, ok := r.f.lookup(name)
	if !ok {
		if required {
			r.fail(dErrors.MissingField(name))
		}
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	default:
		r.fail(dErrors.InvalidValue(name, "must be a string"))
		return ""
	}
}

func (r *fieldReader) float(name string, required bool) *float64 {
	if r.err != nil {
		return nil
	}
	v, ok := r.f.lookup(name)
	if !ok {
		if required {
			r.fail(dErrors.MissingField(name))
		}
		return nil
	}
	n, ok := toFloat(v)
	if !ok {
		r.fail(dErrors.InvalidValue(name, "must be a number"))
		return nil
	}
	return &n
}

// floatIn reads a float and checks it lies in [lo, hi].
func (r *fieldReader) floatIn(name string, required bool, lo, hi float64) *float64 {
	n := r.float(name, required)
	if n != nil && (*n < lo || *n > hi) {
		r.fail(dErrors.InvalidValue(name, "must be between "+formatFloat(lo)+" and "+formatFloat(hi)))
		return nil
	}
	return n
}

func (r *fieldReader) nonNegativeFloat(name string, required bool) float64 {
	n := r.float(name, required)
	if n == nil {
		return 0
	}
	if *n < 0 {
		r.fail(dErrors.InvalidValue(name, "must not be negative"))
		return 0
	}
	return *n
}

func (r *fieldReader) int(name string, required bool) int {
	if r.err != nil {
		return 0
	}
	v, ok := r.f.lookup(name)
	if !ok {
		if required {
			r.fail(dErrors.MissingField(name))
		}
		return 0
	}
	n, ok := toInt(v)
	if !ok {
		r.fail(dErrors.InvalidValue(name, "must be an integer"))
		return 0
	}
	return n
}

func (r *fieldReader) nonNegativeInt(name string, required bool) int {
	n := r.int(name, required)
	if n < 0 {
		r.fail(dErrors.InvalidValue(name, "must not be negative"))
		return 0
	}
	return n
}

func (r *fieldReader) positiveInt(name string, required bool) int {
	n := r.int(name, required)
	if r.err == nil && n <= 0 {
		r.fail(dErrors.InvalidValue(name, "must be positive"))
		return 0
	}
	return n
}

func (r *fieldReader) date(name string, required bool) domain.Date {
	raw := r.str(name, required)
	if r.err != nil || raw == "" {
		return domain.Date{}
	}
	d, err := domain.ParseDate(name, raw)
	if err != nil {
		r.fail(err)
	}
	return d
}

func (r *fieldReader) id(name string, required bool) *domain.ID {
	raw := r.str(name, required)
	if r.err != nil || raw == "" {
		return nil
	}
	id, err := domain.ParseIDField(name, raw)
	if err != nil {
		r.fail(err)
		return nil
	}
	return &id
}

func (r *fieldReader) requiredID(name string) domain.ID {
	if id := r.id(name, true); id != nil {
		return *id
	}
	return domain.NilID
}

func toFloat(v any) (float64, bool) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case json.Number:
		n, err := strconv.Atoi(x.String())
		return n, err == nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	case float64:
		if x != math.Trunc(x) || math.Abs(x) > math.MaxInt32 {
			return 0, false
		}
		return int(x), true
	default:
		return 0, false
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
