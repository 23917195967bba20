//go:build darwin || dragonfly || freebsd || netbsd || openbsd

package platform

import "golang.org/x/sys/unix"

const ioctlGetTermios = unix.TIOCGETA
