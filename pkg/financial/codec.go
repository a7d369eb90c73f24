package financial

import (
	"database/sql/driver"
	"strconv"

	"github.com/quantfabric/fincore/pkg/faults"
)

// MarshalText renders the canonical form.
func (f Financial) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText parses the canonical form.
func (f *Financial) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// MarshalJSON encodes the value as a JSON string. Encoding as a string
// rather than a JSON number keeps the round trip exact for any magnitude.
func (f Financial) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(f.String())), nil
}

// UnmarshalJSON accepts either a string ("12.50") or a bare number that
// already matches the decimal grammar. JSON null leaves the value untouched.
func (f *Financial) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return faults.Argumentf("%s is not a decimal string", s)
		}
		s = unquoted
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Value implements driver.Valuer; values are stored as canonical text and
// fit both text and numeric columns.
func (f Financial) Value() (driver.Value, error) {
	return f.String(), nil
}

// Scan implements sql.Scanner for text, byte and integer columns. Floats
// are rejected: scanning through float64 would silently lose precision.
func (f *Financial) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return f.UnmarshalText([]byte(v))
	case []byte:
		return f.UnmarshalText(v)
	case int64:
		*f = FromInt64(v)
		return nil
	case nil:
		return faults.Argumentf("cannot scan NULL into a decimal")
	default:
		return faults.Argumentf("cannot scan %T into a decimal", src)
	}
}
