package units

import (
	"encoding/json"
	"fmt"
)

type jsonQuantity struct {
	Value  *float64  `json:"value,omitempty"`
	Values []float64 `json:"values,omitempty"`
	Unit   string    `json:"unit"`
}

// MarshalJSON writes a scalar quantity as {"value": v, "unit": u} and
// a series as {"values": [...], "unit": u}.
func (Q Quantity) MarshalJSON() ([]byte, error) {
	j := jsonQuantity{Unit: Q.Unit.String()}
	if Q.IsScalar() {
		v := Q.values[0]
		j.Value = &v
	} else {
		j.Values = Q.Values()
	}
	return json.Marshal(j)
}

// UnmarshalJSON reads the format written by MarshalJSON. The unit string
// goes through Parse.
func (Q *Quantity) UnmarshalJSON(b []byte) error {
	var j jsonQuantity
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	u, err := Parse(j.Unit)
	if err != nil {
		return fmt.Errorf("units: quantity with bad unit: %w", err)
	}
	switch {
	case j.Value != nil:
		*Q = Series(u, *j.Value)
	default:
		*Q = Series(u, j.Values...)
	}
	return nil
}

