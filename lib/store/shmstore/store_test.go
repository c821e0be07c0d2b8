package shmstore

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/shmKV/lib/store"
	storetesting "github.com/ValentinKolb/shmKV/lib/store/testing"
)

var nameCounter atomic.Uint64

func testName() string {
	return fmt.Sprintf("shmkv-store-test-%d-%d", os.Getpid(), nameCounter.Add(1))
}

func Test(t *testing.T) {
	storetesting.RunStoreTests(t, "ShmStore", func(t *testing.T) store.IStore {
		name := testName()
		s, err := CreateStore(name)
		if err != nil {
			t.Fatalf("CreateStore failed: %v", err)
		}
		t.Cleanup(func() {
			_ = s.Close()
			_ = Unlink(name)
		})
		return s
	})
}

func TestNewStoreRequiresExistingSegment(t *testing.T) {
	_, err := NewStore(testName())
	if code := store.CodeOf(err); code != store.RetCNotFound {
		t.Errorf("Expected NotFound, got %s (%v)", code, err)
	}
}

func TestCreateStoreIsExclusive(t *testing.T) {
	name := testName()
	s, err := CreateStore(name)
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
		_ = Unlink(name)
	})

	_, err = CreateStore(name)
	if code := store.CodeOf(err); code != store.RetCAlreadyExists {
		t.Errorf("Expected AlreadyExists, got %s (%v)", code, err)
	}
}

func TestOpenOrCreateStore(t *testing.T) {
	name := testName()
	t.Cleanup(func() { _ = Unlink(name) })

	// Many concurrent attachers, nobody created the segment beforehand:
	// exactly one wins the create, everyone ends up attached to the same
	// table.
	const attachers = 8

	stores := make([]store.IStore, attachers)
	var wg sync.WaitGroup
	for i := 0; i < attachers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := OpenOrCreateStore(name)
			if err != nil {
				t.Errorf("OpenOrCreateStore failed: %v", err)
				return
			}
			stores[i] = s
		}(i)
	}
	wg.Wait()

	defer func() {
		for _, s := range stores {
			if s != nil {
				_ = s.Close()
			}
		}
	}()

	if stores[0] == nil {
		t.Fatal("No store attached")
	}
	if err := stores[0].Put("shared", []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	for i, s := range stores {
		if s == nil {
			t.Fatalf("Attacher %d has no store", i)
		}
		if _, _, err := s.Get("shared"); err != nil {
			t.Errorf("Attacher %d does not see the shared write: %v", i, err)
		}
	}
}

func TestUnlinkedSegmentStaysUsable(t *testing.T) {
	name := testName()
	s, err := CreateStore(name)
	if err != nil {
		t.Fatalf("CreateStore failed: %v", err)
	}
	defer s.Close()

	if err := Unlink(name); err != nil {
		t.Fatalf("Unlink failed: %v", err)
	}

	// The attached store keeps working on the orphaned segment
	if err := s.Put("k", []byte("v")); err != nil {
		t.Errorf("Put after unlink failed: %v", err)
	}

	// But the discoverability path is gone
	_, err = NewStore(name)
	if code := store.CodeOf(err); code != store.RetCNotFound {
		t.Errorf("Expected NotFound after unlink, got %s", code)
	}
	if err := Unlink(name); store.CodeOf(err) != store.RetCNotFound {
		t.Errorf("Expected NotFound on double unlink, got %v", err)
	}
}
