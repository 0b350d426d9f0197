// Package ptr provides pointer helpers for filter fields in tests.
package ptr

// Bool returns a pointer to the given bool value.
func Bool(v bool) *bool { return &v }

// Int64 returns a pointer to the given int64 value.
func Int64(v int64) *int64 { return &v }
