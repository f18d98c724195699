// SPDX-License-Identifier: MIT
// Package transport carries published analysis results to external
// consumers at a fixed cadence, decoupled from the capture callback.
package transport

import "spectrum/internal/analysis"

// Transport is a generic sink for analysis frames. Implementations must be
// thread-safe and must not block the caller indefinitely.
type Transport interface {
	Send(data any) error
	Close() error
}

// SnapshotSource is the read-only result surface of the analysis engine.
// Latest always returns a complete, immutable snapshot of one analysis
// pass.
type SnapshotSource interface {
	Latest() *analysis.Snapshot
}
