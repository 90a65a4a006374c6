package homework

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Validate checks the response shape and extracts the homework records.
//
// The body must be a JSON object whose "homeworks" key holds an array of
// objects. An empty array is a normal "nothing changed" answer, not an error.
func Validate(raw json.RawMessage) (Payload, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil || top == nil {
		return Payload{}, &ShapeError{Reason: "response is not a JSON object"}
	}

	hw, ok := top["homeworks"]
	if !ok || isNull(hw) {
		return Payload{}, &ShapeError{Reason: `key "homeworks" is missing`}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(hw, &items); err != nil {
		return Payload{}, &ShapeError{Reason: `"homeworks" is not a list`}
	}

	out := Payload{Homeworks: make([]Record, 0, len(items))}
	for i, item := range items {
		if len(bytes.TrimSpace(item)) == 0 || bytes.TrimSpace(item)[0] != '{' {
			return Payload{}, &ShapeError{Reason: fmt.Sprintf("homework #%d is not an object", i)}
		}
		var r Record
		if err := json.Unmarshal(item, &r); err != nil {
			return Payload{}, &ShapeError{Reason: fmt.Sprintf("homework #%d: %v", i, err)}
		}
		out.Homeworks = append(out.Homeworks, r)
	}

	if cd, ok := top["current_date"]; ok {
		var ts int64
		if err := json.Unmarshal(cd, &ts); err == nil && !isNull(cd) {
			out.CurrentDate = &ts
		}
	}
	return out, nil
}

func isNull(b json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}
