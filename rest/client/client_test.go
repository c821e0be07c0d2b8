package client

import (
	"fmt"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/shmKV/lib/store"
	"github.com/ValentinKolb/shmKV/lib/store/shmstore"
	storetesting "github.com/ValentinKolb/shmKV/lib/store/testing"
	"github.com/ValentinKolb/shmKV/rest/common"
	"github.com/ValentinKolb/shmKV/rest/server"
)

var segmentCounter atomic.Int64

// newTestStore spins up a full REST server over a fresh segment and returns
// a client attached to it, so the conformance suite exercises the whole
// round trip.
func newTestStore(t *testing.T) store.IStore {
	t.Helper()

	segment := fmt.Sprintf("shmkv-client-test-%d-%d", os.Getpid(), segmentCounter.Add(1))

	srv := server.NewServer(common.ServerConfig{
		Stores:   map[string]string{"kv": segment},
		Endpoint: "localhost:0",
		LogLevel: "error",
	})
	if err := srv.Attach(); err != nil {
		t.Fatalf("failed to attach stores: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())

	c, err := NewRESTStore(common.ClientConfig{
		Endpoints:     []string{ts.URL},
		Store:         "kv",
		TimeoutSecond: 10,
		RetryCount:    2,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Errorf("failed to close client: %v", err)
		}
		ts.Close()
		if err := srv.Close(); err != nil {
			t.Errorf("failed to close server: %v", err)
		}
		if err := shmstore.Unlink(segment); err != nil {
			t.Errorf("failed to unlink segment: %v", err)
		}
	})
	return c
}

func TestRESTStoreConformance(t *testing.T) {
	storetesting.RunStoreTests(t, "rest", newTestStore)
}

func TestNewRESTStoreValidation(t *testing.T) {
	if _, err := NewRESTStore(common.ClientConfig{Store: "kv"}); err == nil {
		t.Errorf("expected error for missing endpoints")
	}
	if _, err := NewRESTStore(common.ClientConfig{Endpoints: []string{"http://localhost:8080"}}); err == nil {
		t.Errorf("expected error for missing store alias")
	}
}

func TestPathUnsafeKeysAreRejected(t *testing.T) {
	c := newTestStore(t)

	// "." and ".." would be collapsed by path cleaning before routing and
	// could never be read back, so the client refuses them on every op
	for _, key := range []string{".", ".."} {
		requireInvalidKey := func(err error) {
			t.Helper()
			if store.CodeOf(err) != store.RetCInvalidKey {
				t.Errorf("key %q: expected InvalidKey, got %v", key, err)
			}
		}
		requireInvalidKey(c.Put(key, []byte("v")))
		_, _, err := c.Get(key)
		requireInvalidKey(err)
		requireInvalidKey(c.Delete(key))
	}

	// Keys that merely contain dots are unaffected
	if err := c.Put("a.b..c", []byte("v")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	value, _, err := c.Get("a.b..c")
	if err != nil || string(value) != "v" {
		t.Errorf("Get(a.b..c) = %q, %v", value, err)
	}
}

func TestUnreachableEndpoint(t *testing.T) {
	c, err := NewRESTStore(common.ClientConfig{
		Endpoints:     []string{"http://127.0.0.1:1"}, // nothing listens here
		Store:         "kv",
		TimeoutSecond: 1,
		RetryCount:    1,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer c.Close()

	err = c.Put("key", []byte("value"))
	if store.CodeOf(err) != store.RetCInternalError {
		t.Errorf("expected InternalError, got %v", err)
	}
}

func TestFailoverToSecondEndpoint(t *testing.T) {
	segment := fmt.Sprintf("shmkv-client-test-%d-%d", os.Getpid(), segmentCounter.Add(1))

	srv := server.NewServer(common.ServerConfig{
		Stores:   map[string]string{"kv": segment},
		Endpoint: "localhost:0",
		LogLevel: "error",
	})
	if err := srv.Attach(); err != nil {
		t.Fatalf("failed to attach stores: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer func() {
		ts.Close()
		srv.Close()
		shmstore.Unlink(segment)
	}()

	c, err := NewRESTStore(common.ClientConfig{
		Endpoints:     []string{"http://127.0.0.1:1", ts.URL},
		Store:         "kv",
		TimeoutSecond: 1,
		RetryCount:    3,
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	defer c.Close()

	// The first attempt hits the dead endpoint, a retry reaches the live one
	if err := c.Put("key", []byte("value")); err != nil {
		t.Fatalf("put failed despite healthy endpoint: %v", err)
	}
	value, _, err := c.Get("key")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(value) != "value" {
		t.Errorf("expected value, got %q", value)
	}
}
