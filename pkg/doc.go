// Package pkg provides shared ambient utilities for the engine and
// timer packages.
//
// This package contains common functionality used across the
// telemetry stack, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error types for host-API misuse
//   - Component identifiers for log filtering
//
// The package is designed to have zero external dependencies, relying
// only on the Go standard library.
//
// # Logging
//
// The logging subsystem wraps [log/slog] with component context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentEngine, "device registered", "device", name)
//
// # Errors
//
// Common host-API errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrNotRunning) {
//	    // Service was never started
//	}
package pkg
