package homework

import "encoding/json"

// Record is one submission's current review status.
type Record struct {
	Name   string
	Status string
}

// UnmarshalJSON reads the API's "homework_name" key, falling back to "name".
func (r *Record) UnmarshalJSON(b []byte) error {
	var raw struct {
		HomeworkName *string `json:"homework_name"`
		Name         *string `json:"name"`
		Status       string  `json:"status"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*r = Record{Status: raw.Status}
	switch {
	case raw.HomeworkName != nil:
		r.Name = *raw.HomeworkName
	case raw.Name != nil:
		r.Name = *raw.Name
	}
	return nil
}

// Payload is a validated statuses response.
type Payload struct {
	Homeworks []Record
	// CurrentDate is the server time to poll from next; nil when absent.
	CurrentDate *int64
}
