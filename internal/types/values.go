package types

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

// Amount is a gold/qty/price value. The backend stores numbers as strings in
// places and uses "" for "not set", so decoding accepts a number, a numeric
// string, "" or null (the last two decode to zero).
type Amount int64

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*a = 0
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*a = Amount(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*a = Amount(f)
	return nil
}

// Name decodes either a bare string or an object carrying "username" (or
// "name"), since list endpoints are not consistent about which they return.
type Name struct {
	Username string `json:"username"`
	Online   bool   `json:"online,omitempty"`
}

func (n *Name) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &n.Username)
	}
	var obj struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		From     string `json:"from"`
		Online   bool   `json:"online"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	n.Username = obj.Username
	if n.Username == "" {
		n.Username = obj.Name
	}
	if n.Username == "" {
		n.Username = obj.From
	}
	n.Online = obj.Online
	return nil
}
