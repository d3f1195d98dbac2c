package validation

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Int is an integer body field that also accepts a numeric string such as
// "555". Any other value is kept as invalid instead of failing the decode,
// so struct rules on the field report it alongside the rest.
type Int struct {
	value int64
	valid bool
}

func NewInt(v int64) Int {
	return Int{value: v, valid: true}
}

func (i *Int) UnmarshalJSON(b []byte) error {
	*i = Int{}
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil
		}
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err == nil {
		i.value, i.valid = n, true
	}
	return nil
}

func (i Int) MarshalJSON() ([]byte, error) {
	if !i.valid {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, i.value, 10), nil
}

// Int64 returns the parsed value, zero when absent or invalid.
func (i Int) Int64() int64 {
	return i.value
}

func (i Int) Valid() bool {
	return i.valid
}
