//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package platform

import "golang.org/x/sys/unix"

// IsTerminal reports whether fd refers to a terminal, using the same
// ioctl-based check golang.org/x/sys/unix provides elsewhere for
// detecting an interactive session, here driving the traceback printer's
// decision to color its output.
func IsTerminal(fd int) bool {
	_, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	return err == nil
}
