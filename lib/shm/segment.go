package shm

import (
	"os"
	"path/filepath"
	"unsafe"
)

// --------------------------------------------------------------------------
// Segment Handle
// --------------------------------------------------------------------------

// Segment is a process-local handle to a mapped shared-memory segment.
// It is NOT safe for concurrent use while being destroyed; all cross-process
// synchronization happens through the guard embedded in the segment, not
// through this handle.
type Segment struct {
	name string
	path string
	fd   int
	mem  []byte
}

// Name returns the segment name this handle was created or opened with.
func (s *Segment) Name() string {
	return s.name
}

// Layout returns the typed overlay of the mapped region, or nil if the
// segment has been destroyed. All accesses through the returned pointer
// operate directly on shared memory.
func (s *Segment) Layout() *Layout {
	if s == nil || s.mem == nil {
		return nil
	}
	return (*Layout)(unsafe.Pointer(&s.mem[0]))
}

// GuardWord returns the 32-bit lock word of the embedded guard token, or
// nil if the segment has been destroyed.
func (s *Segment) GuardWord() *uint32 {
	l := s.Layout()
	if l == nil {
		return nil
	}
	return (*uint32)(unsafe.Pointer(&l.Guard[0]))
}

// --------------------------------------------------------------------------
// Name Resolution
// --------------------------------------------------------------------------

// segmentPath resolves a segment name to a filesystem path. /dev/shm is
// preferred since mappings of files there never touch a disk; when it is
// unavailable (non-Linux unixes, some containers) the path falls back to
// the temporary directory, which still yields a working MAP_SHARED mapping.
func segmentPath(name string) string {
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return filepath.Join("/dev/shm", name)
	}
	return filepath.Join(os.TempDir(), name)
}
