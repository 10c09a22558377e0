//go:build !unix

package scanner

import "os"

// fileIdentity has no portable equivalent off unix; callers fall back to
// hashing the resolved path instead.
func fileIdentity(info os.FileInfo) uint64 {
	return 0
}
