// Package storage keeps an optional journal of chat deliveries.
//
// The journal is an operator aid: the poll loop never reads it back, so
// losing it loses history, not state.
package storage
