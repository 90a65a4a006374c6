package homework

import "fmt"

const (
	StatusApproved  = "approved"
	StatusReviewing = "reviewing"
	StatusRejected  = "rejected"
)

var verdicts = map[string]string{
	StatusApproved:  "Work reviewed: reviewer liked everything. Hooray!",
	StatusReviewing: "Work taken for review by the reviewer.",
	StatusRejected:  "Work reviewed: reviewer has remarks.",
}

// Verdict returns the human-readable sentence for a status code.
func Verdict(status string) (string, bool) {
	v, ok := verdicts[status]
	return v, ok
}

// Translate renders the chat message for a status change.
// There is no fallback verdict: an unknown code is an error.
func Translate(r Record) (string, error) {
	verdict, ok := Verdict(r.Status)
	if !ok {
		return "", &UnknownStatusError{Status: r.Status}
	}
	return fmt.Sprintf("Status of \"%s\" changed. %s", r.Name, verdict), nil
}
