//go:build !unix

package loader

import "os"

// readable reports whether path can be opened for reading. Platforms without
// access(2) get an open-and-close check instead.
func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
