// Package services contains the two client-side application stores.
//
// IdentityStore owns the session and the simulated user directory.
// EventStore owns the calendar events and resolves event creators.
//
// Each store persists its durable state under its own key of the storage
// medium (see package persist) and exposes a transient status, loading flag
// and last error message, that observers receive after every change.
// Operations record failures in the status AND return them, so callers may
// either watch the state or check the returned error.
//
// Operations may wait on an injected Latency before committing. Overlapping
// calls are not serialized against each other; the loading flag and the error
// message are last-write-wins.
package services
