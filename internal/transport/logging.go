// SPDX-License-Identifier: MIT
package transport

import applog "spectrum/internal/log"

// LoggingTransport is a debug sink that logs frame summaries instead of
// transmitting them.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport.
func NewLoggingTransport() *LoggingTransport {
	applog.Infof("Transport: using logging transport")
	return &LoggingTransport{}
}

// Send logs a short summary of the frame at debug level.
func (lt *LoggingTransport) Send(data any) error {
	if f, ok := data.(*Frame); ok {
		applog.Debugf("Transport: frame gen=%d bins=%d peaks=%d", f.Generation, len(f.Smoothed), len(f.Peaks))
		return nil
	}
	applog.Debugf("Transport: frame (%T)", data)
	return nil
}

// Close is a no-op.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
