// Package log provides structured protocol capture for Alti-2 sessions.
//
// This package defines the Logger interface and Event types for
// recording protocol-level activity: raw frames in both directions,
// transaction attempts and outcomes, handshake state changes, and
// resynchronization after corrupted bytes. It is separate from
// operational logging (slog) - a capture file is a complete
// machine-readable trace of one device conversation, suitable for
// attaching to a protocol-analysis report when an undocumented message
// shows up.
//
// # Basic Usage
//
// Applications configure capture by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.Capture = log.NewSlogAdapter(slog.Default())
//
//	// For field captures: write to a binary file
//	cfg.Capture, _ = log.NewFileLogger("jump-dump.nlog")
//
//	// Both: use MultiLogger
//	cfg.Capture = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # File Format
//
// Capture files are a stream of CBOR-encoded events with the .nlog
// extension. The neptune-log CLI tool lists and filters them.
package log
