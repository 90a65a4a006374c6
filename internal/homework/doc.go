// Package homework talks to the homework-review API and turns its answers
// into chat messages.
//
// The three steps are kept separate so the poll loop can tag failures by stage:
//   - Client.Fetch performs one GET and classifies non-200 answers
//   - Validate checks the payload shape and extracts the records
//   - Translate maps a record's status code to its verdict text
package homework
