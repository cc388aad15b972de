//go:build !unix

package capture

// EAGI only exists on Asterisk hosts.
func fdOpen(fd int) bool {
	return false
}
