package airquality

import (
	"encoding/json"
	"math"
	"strconv"
)

// Stat is a computed statistic that may be undefined (not computable).
// Undefined is distinct from zero and from an error.
type Stat struct {
	Value   float64
	Defined bool
}

// Undefined returns the "not computable" sentinel.
func Undefined() Stat { return Stat{Value: math.NaN()} }

// Defined wraps a computed value. NaN and infinities are treated as undefined.
func Defined(v float64) Stat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Undefined()
	}
	return Stat{Value: v, Defined: true}
}

// Float returns the value, or NaN when undefined.
func (s Stat) Float() float64 {
	if !s.Defined {
		return math.NaN()
	}
	return s.Value
}

// String formats to two decimals, or "n/a".
func (s Stat) String() string {
	if !s.Defined {
		return "n/a"
	}
	return strconv.FormatFloat(s.Value, 'f', 2, 64)
}

// MarshalJSON encodes undefined as null.
func (s Stat) MarshalJSON() ([]byte, error) {
	if !s.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// UnmarshalJSON accepts a number or null.
func (s *Stat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Undefined()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Defined(v)
	return nil
}
