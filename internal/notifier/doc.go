// Package notifier delivers bot messages to the configured chat.
//
// Delivery is synchronous: Notify returns once the transport accepted (or
// rejected) the message, so the caller decides what a failure means.
//
// # Dedup
//
// The service remembers the last message it delivered successfully, of any
// kind. IsNew reports whether a candidate differs from it; the poll loop uses
// that to avoid repeating the same error text, while status updates are always
// sent.
//
// # History
//
// For debugging and operator visibility, the service keeps a small in-memory
// history of delivered messages and publishes notifier.sent / notifier.failed
// events on the bus.
package notifier
