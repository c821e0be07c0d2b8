package testing

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ValentinKolb/shmKV/lib/shm"
	"github.com/ValentinKolb/shmKV/lib/store"
)

// StoreFactory creates a fresh, empty store for one test. Implementations
// register their own cleanup (Close, Unlink) via t.Cleanup.
type StoreFactory func(t *testing.T) store.IStore

// RunStoreTests runs the conformance suite for an IStore implementation.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("PutGet", func(t *testing.T) {
			testPutGet(t, factory(t))
		})

		t.Run("Overwrite", func(t *testing.T) {
			testOverwrite(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("Capacity", func(t *testing.T) {
			testCapacity(t, factory(t))
		})

		t.Run("Version", func(t *testing.T) {
			testVersion(t, factory(t))
		})

		t.Run("KeyBoundary", func(t *testing.T) {
			testKeyBoundary(t, factory(t))
		})

		t.Run("ValueBoundary", func(t *testing.T) {
			testValueBoundary(t, factory(t))
		})

		t.Run("EmptyKey", func(t *testing.T) {
			testEmptyKey(t, factory(t))
		})

		t.Run("ZeroByteKey", func(t *testing.T) {
			testZeroByteKey(t, factory(t))
		})

		t.Run("Status", func(t *testing.T) {
			testStatus(t, factory(t))
		})

		t.Run("Closed", func(t *testing.T) {
			testClosed(t, factory(t))
		})

		t.Run("ConcurrentWriters", func(t *testing.T) {
			testConcurrentWriters(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// requireCode fails the test if err does not carry the expected return code
func requireCode(t testing.TB, err error, code store.RetCode) {
	t.Helper()
	if got := store.CodeOf(err); got != code {
		t.Errorf("Expected code %s, got %s (err: %v)", code, got, err)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPutGet(t *testing.T, s store.IStore) {
	testKey := "user:1"
	testValue := []byte("alice")

	if err := s.Put(testKey, testValue); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	result, stamp, err := s.Get(testKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(result, testValue) {
		t.Errorf("Expected value %s, got %s", testValue, result)
	}
	if stamp <= 0 {
		t.Errorf("Expected a positive unix timestamp, got %d", stamp)
	}

	_, _, err = s.Get("nonexistent-key")
	requireCode(t, err, store.RetCNotFound)

	// Get must return a copy, not a view into the segment
	result[0] = 'X'
	again, _, err := s.Get(testKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if bytes.Equal(result, again) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}
}

func testOverwrite(t *testing.T, s store.IStore) {
	testKey := "user:1"

	if err := s.Put(testKey, []byte("alice")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	_, t1, err := s.Get(testKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	countBefore := mustStatus(t, s).EntryCount

	if err := s.Put(testKey, []byte("alicia")); err != nil {
		t.Fatalf("Overwriting Put failed: %v", err)
	}

	result, t2, err := s.Get(testKey)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(result, []byte("alicia")) {
		t.Errorf("Expected updated value alicia, got %s", result)
	}
	if t2 < t1 {
		t.Errorf("Timestamp went backwards: %d -> %d", t1, t2)
	}
	if count := mustStatus(t, s).EntryCount; count != countBefore {
		t.Errorf("Overwrite changed entry_count from %d to %d", countBefore, count)
	}
}

func testDelete(t *testing.T, s store.IStore) {
	if err := s.Put("a", []byte("1")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Put("b", []byte("2")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	before := mustStatus(t, s).EntryCount
	if err := s.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	after := mustStatus(t, s).EntryCount
	if after != before-1 {
		t.Errorf("Expected entry_count %d after delete, got %d", before-1, after)
	}

	_, _, err := s.Get("a")
	requireCode(t, err, store.RetCNotFound)

	requireCode(t, s.Delete("a"), store.RetCNotFound)
	requireCode(t, s.Delete("never-stored"), store.RetCNotFound)
}

func testCapacity(t *testing.T, s store.IStore) {
	// Fill every slot
	for i := 0; i < shm.Capacity; i++ {
		key := fmt.Sprintf("key-%d", i)
		if err := s.Put(key, []byte("v")); err != nil {
			t.Fatalf("Put %s failed: %v", key, err)
		}
	}
	if count := mustStatus(t, s).EntryCount; count != shm.Capacity {
		t.Fatalf("Expected entry_count %d, got %d", shm.Capacity, count)
	}

	// A new key must be rejected, overwriting an existing one must not
	requireCode(t, s.Put("key-overflow", []byte("v")), store.RetCStoreFull)
	if err := s.Put("key-0", []byte("updated")); err != nil {
		t.Errorf("Overwrite on a full store failed: %v", err)
	}

	// Freeing one slot makes room for exactly one new key
	if err := s.Delete("key-3"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Put("key-new", []byte("v")); err != nil {
		t.Errorf("Put after delete failed: %v", err)
	}
	if count := mustStatus(t, s).EntryCount; count != shm.Capacity {
		t.Errorf("Expected entry_count %d after delete+put, got %d", shm.Capacity, count)
	}
	requireCode(t, s.Put("key-overflow", []byte("v")), store.RetCStoreFull)
}

func testVersion(t *testing.T, s store.IStore) {
	v0 := mustStatus(t, s).Version

	if err := s.Put("k", []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if v := mustStatus(t, s).Version; v != v0+1 {
		t.Errorf("Expected version %d after put, got %d", v0+1, v)
	}

	if err := s.Put("k", []byte("v2")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if v := mustStatus(t, s).Version; v != v0+2 {
		t.Errorf("Expected version %d after overwrite, got %d", v0+2, v)
	}

	// Reads never move the version
	if _, _, err := s.Get("k"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	mustStatus(t, s)
	if v := mustStatus(t, s).Version; v != v0+2 {
		t.Errorf("Get/Status changed the version to %d", v)
	}

	// Failed mutations never move the version
	requireCode(t, s.Delete("missing"), store.RetCNotFound)
	if v := mustStatus(t, s).Version; v != v0+2 {
		t.Errorf("Failed delete changed the version to %d", v)
	}

	if err := s.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if v := mustStatus(t, s).Version; v != v0+3 {
		t.Errorf("Expected version %d after delete, got %d", v0+3, v)
	}
}

func testKeyBoundary(t *testing.T, s store.IStore) {
	// KeySize-1 bytes is the longest storable key
	longest := strings.Repeat("k", shm.KeySize-1)
	if err := s.Put(longest, []byte("v")); err != nil {
		t.Errorf("Put with key of length %d failed: %v", shm.KeySize-1, err)
	}
	if result, _, err := s.Get(longest); err != nil || !bytes.Equal(result, []byte("v")) {
		t.Errorf("Get with key of length %d failed: %v", shm.KeySize-1, err)
	}

	// KeySize bytes must be rejected on every operation
	tooLong := strings.Repeat("k", shm.KeySize)
	requireCode(t, s.Put(tooLong, []byte("v")), store.RetCKeyTooLong)
	_, _, err := s.Get(tooLong)
	requireCode(t, err, store.RetCKeyTooLong)
	requireCode(t, s.Delete(tooLong), store.RetCKeyTooLong)
}

func testValueBoundary(t *testing.T, s store.IStore) {
	longest := bytes.Repeat([]byte("v"), shm.ValueSize-1)
	if err := s.Put("k", longest); err != nil {
		t.Errorf("Put with value of length %d failed: %v", shm.ValueSize-1, err)
	}
	if result, _, err := s.Get("k"); err != nil || !bytes.Equal(result, longest) {
		t.Errorf("Get after boundary put failed: %v", err)
	}

	tooLong := bytes.Repeat([]byte("v"), shm.ValueSize)
	requireCode(t, s.Put("k", tooLong), store.RetCValueTooLong)
}

func testEmptyKey(t *testing.T, s store.IStore) {
	// An empty key is indistinguishable from a free slot and is rejected
	requireCode(t, s.Put("", []byte("v")), store.RetCEmptyKey)

	_, _, err := s.Get("")
	requireCode(t, err, store.RetCNotFound)
	requireCode(t, s.Delete(""), store.RetCNotFound)

	if count := mustStatus(t, s).EntryCount; count != 0 {
		t.Errorf("Empty-key operations must not create entries, entry_count=%d", count)
	}
}

func testZeroByteKey(t *testing.T, s store.IStore) {
	// Stored keys are zero-terminated: a key with an interior zero byte
	// would land truncated and alias its prefix. Rejected on every
	// operation.
	requireCode(t, s.Put("a\x00b", []byte("hidden")), store.RetCInvalidKey)
	_, _, err := s.Get("a\x00b")
	requireCode(t, err, store.RetCInvalidKey)
	requireCode(t, s.Delete("a\x00b"), store.RetCInvalidKey)

	// The prefix key must be untouched by the rejected writes
	_, _, err = s.Get("a")
	requireCode(t, err, store.RetCNotFound)
	if count := mustStatus(t, s).EntryCount; count != 0 {
		t.Errorf("Zero-byte-key operations must not create entries, entry_count=%d", count)
	}

	if err := s.Put("a", []byte("visible")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	value, _, err := s.Get("a")
	if err != nil || !bytes.Equal(value, []byte("visible")) {
		t.Errorf("Get(a) = %q, %v", value, err)
	}
}

func testStatus(t *testing.T, s store.IStore) {
	keys := []string{"a", "b", "c"}
	for _, k := range keys {
		if err := s.Put(k, []byte("value-"+k)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	status := mustStatus(t, s)
	if status.Capacity != shm.Capacity {
		t.Errorf("Expected capacity %d, got %d", shm.Capacity, status.Capacity)
	}
	if status.EntryCount != uint32(len(keys)) {
		t.Errorf("Expected entry_count %d, got %d", len(keys), status.EntryCount)
	}
	if len(status.Entries) != len(keys) {
		t.Fatalf("Expected %d entries, got %d", len(keys), len(status.Entries))
	}

	// Entries are reported in slot (insertion) order
	for i, k := range keys {
		e := status.Entries[i]
		if e.Key != k {
			t.Errorf("Entry %d: expected key %s, got %s", i, k, e.Key)
		}
		if !bytes.Equal(e.Value, []byte("value-"+k)) {
			t.Errorf("Entry %d: expected value value-%s, got %s", i, k, e.Value)
		}
		if e.Timestamp <= 0 {
			t.Errorf("Entry %d: expected a positive timestamp, got %d", i, e.Timestamp)
		}
	}
}

func testClosed(t *testing.T, s store.IStore) {
	if err := s.Put("k", []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Second Close failed (must be idempotent): %v", err)
	}

	requireCode(t, s.Put("k", []byte("v")), store.RetCNotInitialized)
	_, _, err := s.Get("k")
	requireCode(t, err, store.RetCNotInitialized)
	requireCode(t, s.Delete("k"), store.RetCNotInitialized)
	_, err = s.Status()
	requireCode(t, err, store.RetCNotInitialized)
}

func testConcurrentWriters(t *testing.T, s store.IStore) {
	const (
		workers = 8
		rounds  = 200
	)

	// Every worker hammers its own key with recognizable payloads; readers
	// must never observe a torn value or an inconsistent snapshot.
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			key := fmt.Sprintf("worker-%d", w)
			for i := 0; i < rounds; i++ {
				payload := []byte(strings.Repeat(fmt.Sprintf("%d", w), 32))
				if err := s.Put(key, payload); err != nil {
					t.Errorf("Put failed: %v", err)
					return
				}
				value, _, err := s.Get(key)
				if err != nil {
					t.Errorf("Get failed: %v", err)
					return
				}
				if !bytes.Equal(value, payload) {
					t.Errorf("Torn read for %s: %q", key, value)
					return
				}
				status, err := s.Status()
				if err != nil {
					t.Errorf("Status failed: %v", err)
					return
				}
				if int(status.EntryCount) != len(status.Entries) {
					t.Errorf("Inconsistent snapshot: entry_count=%d but %d entries",
						status.EntryCount, len(status.Entries))
					return
				}
			}
		}(w)
	}
	wg.Wait()

	if count := mustStatus(t, s).EntryCount; count != workers {
		t.Errorf("Expected %d entries after concurrent writes, got %d", workers, count)
	}
}

func mustStatus(t testing.TB, s store.IStore) store.Status {
	t.Helper()
	status, err := s.Status()
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	return status
}
