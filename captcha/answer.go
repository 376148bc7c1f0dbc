package captcha

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Answer accepts either a JSON string or a JSON number, so {"captcha_answer": 7}
// and {"captcha_answer": "7"} bind the same way.
type Answer string

func (a *Answer) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Answer(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*a = Answer(strconv.FormatInt(i, 10))
		return nil
	}
	*a = Answer(n.String())
	return nil
}

func (a Answer) String() string {
	return string(a)
}
