// Package testharness provides a scripted in-memory instrument for
// protocol tests: a transport.Channel whose far end behaves like an
// Alti-2 device (or misbehaves like a noisy link), without hardware.
package testharness
