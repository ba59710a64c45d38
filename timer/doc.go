// Package timer implements a named, tick-driven timer service sharing
// the engine's hash-map substrate. A Service is independent state: no
// process-wide registry, one instance per host.
package timer
