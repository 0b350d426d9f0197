//go:build windows

package fileutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

func isOwnerOnly(perm os.FileMode) bool {
	return perm&0o077 == 0
}

// restrictToCurrentUser replaces the DACL on path with a single entry
// granting GENERIC_ALL to the current user. Directories pass the entry on
// to their children.
func restrictToCurrentUser(path string) error {
	user, err := windows.GetCurrentProcessToken().GetTokenUser()
	if err != nil {
		return fmt.Errorf("get current user SID for %s: %w", path, err)
	}

	var inherit uint32 = windows.NO_INHERITANCE
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		inherit = windows.CONTAINER_INHERIT_ACE | windows.OBJECT_INHERIT_ACE
	}

	acl, err := windows.ACLFromEntries([]windows.EXPLICIT_ACCESS{{
		AccessPermissions: windows.GENERIC_ALL,
		AccessMode:        windows.SET_ACCESS,
		Inheritance:       inherit,
		Trustee: windows.TRUSTEE{
			TrusteeForm:  windows.TRUSTEE_IS_SID,
			TrusteeType:  windows.TRUSTEE_IS_USER,
			TrusteeValue: windows.TrusteeValueFromSID(user.User.Sid),
		},
	}}, nil)
	if err != nil {
		return fmt.Errorf("build ACL for %s: %w", path, err)
	}

	info := windows.DACL_SECURITY_INFORMATION | windows.PROTECTED_DACL_SECURITY_INFORMATION
	if err := windows.SetNamedSecurityInfo(path, windows.SE_FILE_OBJECT,
		windows.SECURITY_INFORMATION(info), nil, nil, acl, nil); err != nil {
		return fmt.Errorf("set DACL on %s: %w", path, err)
	}
	return nil
}

// SecureWriteFile writes data to path with perm. A failed DACL update is
// logged, not returned.
func SecureWriteFile(path string, data []byte, perm os.FileMode) error {
	if err := os.WriteFile(path, data, perm); err != nil {
		return err
	}
	if isOwnerOnly(perm) {
		if err := restrictToCurrentUser(path); err != nil {
			slog.Warn("restrict file access failed", "path", path, "error", err)
		}
	}
	return nil
}

// SecureMkdirAll creates path and any missing parents with perm, restricting
// every directory it created.
func SecureMkdirAll(path string, perm os.FileMode) error {
	var created []string
	if isOwnerOnly(perm) {
		for p := filepath.Clean(path); p != "." && p != string(filepath.Separator); {
			if _, err := os.Stat(p); err == nil {
				break
			}
			created = append(created, p)
			parent := filepath.Dir(p)
			if parent == p {
				break
			}
			p = parent
		}
	}

	if err := os.MkdirAll(path, perm); err != nil {
		return err
	}
	for _, dir := range created {
		if err := restrictToCurrentUser(dir); err != nil {
			slog.Warn("restrict directory access failed", "path", dir, "error", err)
		}
	}
	return nil
}
