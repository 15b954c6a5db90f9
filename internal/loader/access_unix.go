//go:build unix

package loader

import "golang.org/x/sys/unix"

// readable reports whether the calling process may read path.
func readable(path string) bool {
	return unix.Access(path, unix.R_OK) == nil
}
