package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/FC2Observ/observ/internal/util"
)

// Number decodes a JSON number or a numeric string. The game client is not
// consistent about which one it sends. NaN and infinities are rejected so the
// entry carrying them is skipped.
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if len(b) > 0 && b[0] == '"' {
		s = util.TrimQuotes(s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("parseNumber: %q is not a number", string(b))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("parseNumber: %q is not finite", string(b))
	}
	*n = Number(f)
	return nil
}

func (n Number) Float() float64 {
	return float64(n)
}

// Int truncates toward zero.
func (n Number) Int() int {
	return int(n)
}

// ID decodes an identifier sent either as a string or a number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("parseID: %q is neither string nor number", string(b))
	}
	*id = ID(num.String())
	return nil
}
