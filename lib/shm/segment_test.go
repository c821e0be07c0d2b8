package shm

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"unsafe"
)

var nameCounter atomic.Uint64

// testName returns a segment name unique to this process and call, so
// parallel test runs never collide in /dev/shm.
func testName() string {
	return fmt.Sprintf("shmkv-test-%d-%d", os.Getpid(), nameCounter.Add(1))
}

func TestLayoutSize(t *testing.T) {
	if size := unsafe.Sizeof(Layout{}); size != LayoutSize {
		t.Fatalf("Layout overlay is %d bytes, contract says %d", size, LayoutSize)
	}
	if size := unsafe.Sizeof(Slot{}); size != SlotSize {
		t.Fatalf("Slot overlay is %d bytes, contract says %d", size, SlotSize)
	}
}

func TestCreateInitializesSegment(t *testing.T) {
	name := testName()
	seg, err := Create(name)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer func() {
		_ = seg.Destroy()
		_ = Unlink(name)
	}()

	l := seg.Layout()
	if l == nil {
		t.Fatal("Layout returned nil for a live segment")
	}
	if l.Version != 1 {
		t.Errorf("Expected version 1 on a fresh segment, got %d", l.Version)
	}
	if l.EntryCount != 0 {
		t.Errorf("Expected entry_count 0 on a fresh segment, got %d", l.EntryCount)
	}
	for i := range l.Table {
		if l.Table[i].Key[0] != 0 {
			t.Errorf("Slot %d of a fresh segment is not free", i)
		}
	}
	if *seg.GuardWord() != 0 {
		t.Errorf("Guard of a fresh segment is not unlocked")
	}
}

func TestCreateAlreadyExists(t *testing.T) {
	name := testName()
	seg, err := Create(name)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer func() {
		_ = seg.Destroy()
		_ = Unlink(name)
	}()

	if _, err := Create(name); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}
}

func TestOpenSharesContents(t *testing.T) {
	name := testName()
	creator, err := Create(name)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer func() {
		_ = creator.Destroy()
		_ = Unlink(name)
	}()

	// Write through one mapping, observe through a second one
	copy(creator.Layout().Table[0].Key[:], "shared")
	creator.Layout().Version = 42

	opener, err := Open(name)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer opener.Destroy()

	if got := opener.Layout().Version; got != 42 {
		t.Errorf("Expected version 42 through second mapping, got %d", got)
	}
	if string(opener.Layout().Table[0].Key[:6]) != "shared" {
		t.Errorf("Second mapping does not see the creator's write")
	}
}

func TestOpenNotFound(t *testing.T) {
	if _, err := Open(testName()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestOpenInvalidLayout(t *testing.T) {
	name := testName()

	// Plant an object of the wrong size under the segment name
	path := segmentPath(name)
	if err := os.WriteFile(path, make([]byte, LayoutSize/2), 0600); err != nil {
		t.Fatalf("Failed to plant file: %v", err)
	}
	defer os.Remove(path)

	if _, err := Open(name); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("Expected ErrInvalidLayout, got %v", err)
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	name := testName()
	seg, err := Create(name)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer Unlink(name)

	if err := seg.Destroy(); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if err := seg.Destroy(); err != nil {
		t.Errorf("Second Destroy failed (must be idempotent): %v", err)
	}
	if seg.Layout() != nil {
		t.Errorf("Layout must be nil after Destroy")
	}
}

func TestUnlink(t *testing.T) {
	name := testName()
	seg, err := Create(name)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Unlinking removes discoverability but not the live mapping
	if err := Unlink(name); err != nil {
		t.Fatalf("Unlink failed: %v", err)
	}
	if _, err := Open(name); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after unlink, got %v", err)
	}
	if seg.Layout() == nil {
		t.Errorf("Existing mapping must survive unlink")
	}
	seg.Layout().Version = 7 // still writable

	if err := seg.Destroy(); err != nil {
		t.Errorf("Destroy after unlink failed: %v", err)
	}

	// Nothing left to unlink
	if err := Unlink(name); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second unlink, got %v", err)
	}

	// The name is free for a new creator
	seg2, err := Create(name)
	if err != nil {
		t.Fatalf("Create after unlink failed: %v", err)
	}
	_ = seg2.Destroy()
	_ = Unlink(name)
}
