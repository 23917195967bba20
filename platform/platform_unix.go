//go:build darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris

package platform

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PageSize returns the host's page size in bytes.
func PageSize() int {
	return unix.Getpagesize()
}

// Reserve maps size bytes (rounded up to a page) of zeroed, read-write,
// anonymous memory. The mapping is never moved by the OS; addresses handed
// out of it remain valid until Release.
func Reserve(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, fmt.Errorf("platform: reserve size must be positive, got %d", size)
	}
	page := PageSize()
	size = (size + page - 1) / page * page
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("platform: mmap %d bytes: %w", size, err)
	}
	return &Mapping{Bytes: b, Addr: addrOf(b)}, nil
}

// Release unmaps m. m must not be used afterward.
func (m *Mapping) Release() error {
	if m == nil || m.Bytes == nil {
		return nil
	}
	err := unix.Munmap(m.Bytes)
	m.Bytes = nil
	m.Addr = 0
	return err
}
