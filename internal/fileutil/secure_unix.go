//go:build !windows

// Package fileutil writes files that may hold credentials.
// On Unix the requested mode is the only protection. On Windows, owner-only
// modes (perm&0077 == 0) also get a DACL limited to the current user.
package fileutil

import "os"

// SecureWriteFile writes data to path with perm.
func SecureWriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

// SecureMkdirAll creates path and any missing parents with perm.
func SecureMkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}
