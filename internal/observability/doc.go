// Package observability exposes the bot's Prometheus metrics and, optionally,
// net/http/pprof on a local HTTP listener.
package observability
