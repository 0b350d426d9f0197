// Package testutil provides test helpers for courier-inbox tests.
//
// The package is organized into focused files:
//   - assert.go: assertion helpers (MustNoErr, AssertStrings)
//   - builders.go: message and wire-response builders
package testutil
