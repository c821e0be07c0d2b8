//go:build unix

package shm

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// --------------------------------------------------------------------------
// Lifecycle Operations
// --------------------------------------------------------------------------

// Create allocates a new segment under the given name, sizes it to the
// fixed layout and maps it. The fresh mapping is zero-filled by the OS,
// which already encodes "all slots free, guard unlocked, entry_count 0";
// only the version counter needs an explicit start value.
//
// Fails with ErrAlreadyExists if a segment of that name is registered, or
// ErrResourceExhausted if the OS cannot allocate or map it.
func Create(name string) (*Segment, error) {
	path := segmentPath(name)

	// O_EXCL protects an existing segment from being re-initialized
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0600)
	if err != nil {
		if err == unix.EEXIST {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, path)
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrResourceExhausted, path, err)
	}

	// A half-created segment must not stay discoverable
	cleanup := func() {
		_ = unix.Close(fd)
		_ = unix.Unlink(path)
	}

	if err := unix.Ftruncate(fd, int64(LayoutSize)); err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: ftruncate %s: %v", ErrResourceExhausted, path, err)
	}

	mem, err := unix.Mmap(fd, 0, LayoutSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: mmap %s: %v", ErrResourceExhausted, path, err)
	}

	seg := &Segment{name: name, path: path, fd: fd, mem: mem}
	seg.Layout().Version = 1

	return seg, nil
}

// Open attaches to an existing segment without touching its contents. The
// actual object size is validated against the fixed layout before the
// handle is returned, so a segment created by an incompatible build is
// rejected with ErrInvalidLayout instead of being misread.
func Open(name string) (*Segment, error) {
	path := segmentPath(name)

	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		if err == unix.ENOENT {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrResourceExhausted, path, err)
	}

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: fstat %s: %v", ErrResourceExhausted, path, err)
	}
	if stat.Size != int64(LayoutSize) {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: %s is %d bytes, expected %d",
			ErrInvalidLayout, path, stat.Size, LayoutSize)
	}

	mem, err := unix.Mmap(fd, 0, LayoutSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("%w: mmap %s: %v", ErrResourceExhausted, path, err)
	}

	return &Segment{name: name, path: path, fd: fd, mem: mem}, nil
}

// Destroy unmaps the segment from the calling process and closes its
// descriptor. It is idempotent and has no effect on the segment's global
// existence or on mappings held by other processes.
func (s *Segment) Destroy() error {
	if s == nil || s.mem == nil {
		return nil
	}
	if err := unix.Munmap(s.mem); err != nil {
		return fmt.Errorf("munmap %s: %w", s.path, err)
	}
	s.mem = nil
	if err := unix.Close(s.fd); err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}
	s.fd = -1
	return nil
}

// Unlink removes the named segment from the OS namespace. Open calls fail
// with ErrNotFound afterwards until a new Create; processes that already
// hold a mapping keep working on the orphaned object.
func Unlink(name string) error {
	path := segmentPath(name)
	if err := unix.Unlink(path); err != nil {
		if err == unix.ENOENT {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("unlink %s: %w", path, err)
	}
	return nil
}
