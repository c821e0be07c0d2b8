//go:build !unix

package shm

import "fmt"

// Shared-memory segments need a POSIX mmap; on other platforms every
// lifecycle operation reports resource exhaustion.

func Create(name string) (*Segment, error) {
	return nil, fmt.Errorf("%w: shared memory segments are not supported on this platform", ErrResourceExhausted)
}

func Open(name string) (*Segment, error) {
	return nil, fmt.Errorf("%w: shared memory segments are not supported on this platform", ErrResourceExhausted)
}

func (s *Segment) Destroy() error {
	return nil
}

func Unlink(name string) error {
	return fmt.Errorf("%w: shared memory segments are not supported on this platform", ErrResourceExhausted)
}
