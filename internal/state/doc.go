// Package state provides the in-memory facades the UI layer reads and
// mutates instead of touching the store directly.
//
// Three independent facades (settings, favorites, tasks) follow the same
// lifecycle: Init runs the schema migration if needed, loads the backing
// collection into a mirror, and marks the facade loaded. After that, reads
// are synchronous against the mirror and mutators follow the optimistic
// pattern: apply to the mirror, persist, and on failure revert to
// store-confirmed state while setting the facade's error slot. There is no
// loaded-to-loading transition after Init; the last-known data stays
// visible while a mutation is in flight.
//
// Facades do not serialize mutations against each other. Callers issuing
// concurrent mutations against the same collection should await one before
// starting the next.
package state
