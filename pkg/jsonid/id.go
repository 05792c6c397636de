package jsonid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is an identifier that may arrive as a JSON number or a JSON string.
type ID string

// UnmarshalJSON accepts 12, "12" and "abc". null decodes to the empty ID.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes numeric IDs as numbers and everything else as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, ok := id.Int64(); ok {
		return []byte(strconv.FormatInt(n, 10)), nil
	}
	return json.Marshal(string(id))
}

// Int64 coerces the ID to an integer.
func (id ID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the ID was absent, empty or 0. Clients treat 0 as
// "no id", so it never addresses a record.
func (id ID) IsZero() bool {
	if id == "" {
		return true
	}
	n, ok := id.Int64()
	return ok && n == 0
}
