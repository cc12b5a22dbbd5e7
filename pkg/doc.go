// Package pkg provides shared utilities for the softxhci register layer.
//
// This package contains common functionality used by the accessor, mapper and
// register packages, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors for mapping failures
//   - The [AlignmentFault] raised by accessor factories
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with component context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogDebug(pkg.ComponentMMIO, "array mapped", "phys", base, "len", n)
//
// # Errors
//
// Mapper errors are sentinel values, usually wrapped:
//
//	if errors.Is(err, pkg.ErrOutOfRange) {
//	    // Requested window lies outside the BAR
//	}
//
// Alignment faults are not returned. Accessor factories panic with an
// *AlignmentFault, which unwraps to [ErrMisaligned].
package pkg
