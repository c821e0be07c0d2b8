package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/shmKV/lib/store"
	"github.com/ValentinKolb/shmKV/lib/store/shmstore"
	"github.com/ValentinKolb/shmKV/rest/common"
)

var segmentCounter atomic.Int64

// newTestServer starts an httptest server fronting one fresh segment
// registered under the alias "kv".
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	segment := fmt.Sprintf("shmkv-rest-test-%d-%d", os.Getpid(), segmentCounter.Add(1))

	srv := NewServer(common.ServerConfig{
		Stores:   map[string]string{"kv": segment},
		Endpoint: "localhost:0",
		LogLevel: "error",
	})
	if err := srv.Attach(); err != nil {
		t.Fatalf("failed to attach stores: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		if err := srv.Close(); err != nil {
			t.Errorf("failed to close server: %v", err)
		}
		if err := shmstore.Unlink(segment); err != nil {
			t.Errorf("failed to unlink segment: %v", err)
		}
	})
	return ts
}

// doJSON performs a request and decodes the JSON response body into out.
func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode response body: %v", err)
		}
	}
	return resp.StatusCode
}

func TestInfoEndpoint(t *testing.T) {
	ts := newTestServer(t)

	var info common.InfoResponse
	if code := doJSON(t, http.MethodGet, ts.URL+"/", nil, &info); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if info.Service != "shmKV" {
		t.Errorf("expected service shmKV, got %q", info.Service)
	}
	if len(info.Stores) != 1 || info.Stores[0] != "kv" {
		t.Errorf("expected stores [kv], got %v", info.Stores)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	if code := doJSON(t, http.MethodGet, ts.URL+"/health", nil, nil); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestSetGetDeleteRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	// Set
	var setResp common.SetResponse
	code := doJSON(t, http.MethodPost, ts.URL+"/kv/set",
		common.SetRequest{Key: "greeting", Value: "hello"}, &setResp)
	if code != http.StatusOK {
		t.Fatalf("set: expected 200, got %d", code)
	}
	if !setResp.Success || setResp.Key != "greeting" {
		t.Fatalf("set: unexpected response %+v", setResp)
	}

	// Get
	var getResp common.GetResponse
	code = doJSON(t, http.MethodGet, ts.URL+"/kv/get/greeting", nil, &getResp)
	if code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", code)
	}
	if getResp.Value != "hello" {
		t.Errorf("get: expected value hello, got %q", getResp.Value)
	}
	if getResp.Timestamp == 0 {
		t.Errorf("get: expected a non-zero timestamp")
	}

	// Delete
	var delResp common.DeleteResponse
	code = doJSON(t, http.MethodDelete, ts.URL+"/kv/delete/greeting", nil, &delResp)
	if code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", code)
	}

	// Get after delete
	var errResp common.ErrorResponse
	code = doJSON(t, http.MethodGet, ts.URL+"/kv/get/greeting", nil, &errResp)
	if code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", code)
	}
	if errResp.Code != store.RetCNotFound.String() {
		t.Errorf("get after delete: expected code %s, got %s", store.RetCNotFound, errResp.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("key-%d", i)
		if code := doJSON(t, http.MethodPost, ts.URL+"/kv/set",
			common.SetRequest{Key: key, Value: "v"}, nil); code != http.StatusOK {
			t.Fatalf("set %s: expected 200, got %d", key, code)
		}
	}

	var status common.StatusResponse
	if code := doJSON(t, http.MethodGet, ts.URL+"/kv/status", nil, &status); code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", code)
	}
	if status.EntryCount != 3 {
		t.Errorf("expected entry count 3, got %d", status.EntryCount)
	}
	// version starts at 1 on create, +1 per mutation
	if status.Version != 4 {
		t.Errorf("expected version 4, got %d", status.Version)
	}
	if len(status.Entries) != 3 {
		t.Errorf("expected 3 entries, got %d", len(status.Entries))
	}
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantHTTP int
		wantCode store.RetCode
	}{
		{
			name:     "unknown store alias",
			method:   http.MethodGet,
			path:     "/nosuchstore/get/key",
			wantHTTP: http.StatusNotFound,
			wantCode: store.RetCNotFound,
		},
		{
			name:     "missing key",
			method:   http.MethodGet,
			path:     "/kv/get/missing",
			wantHTTP: http.StatusNotFound,
			wantCode: store.RetCNotFound,
		},
		{
			name:     "empty key",
			method:   http.MethodPost,
			path:     "/kv/set",
			body:     common.SetRequest{Key: "", Value: "v"},
			wantHTTP: http.StatusBadRequest,
			wantCode: store.RetCEmptyKey,
		},
		{
			name:     "key with zero byte",
			method:   http.MethodPost,
			path:     "/kv/set",
			body:     common.SetRequest{Key: "a\x00b", Value: "v"},
			wantHTTP: http.StatusBadRequest,
			wantCode: store.RetCInvalidKey,
		},
		{
			name:     "key too long",
			method:   http.MethodPost,
			path:     "/kv/set",
			body:     common.SetRequest{Key: strings.Repeat("k", 64), Value: "v"},
			wantHTTP: http.StatusRequestEntityTooLarge,
			wantCode: store.RetCKeyTooLong,
		},
		{
			name:     "value too long",
			method:   http.MethodPost,
			path:     "/kv/set",
			body:     common.SetRequest{Key: "k", Value: strings.Repeat("v", 256)},
			wantHTTP: http.StatusRequestEntityTooLarge,
			wantCode: store.RetCValueTooLong,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var errResp common.ErrorResponse
			code := doJSON(t, tc.method, ts.URL+tc.path, tc.body, &errResp)
			if code != tc.wantHTTP {
				t.Errorf("expected HTTP %d, got %d", tc.wantHTTP, code)
			}
			if errResp.Code != tc.wantCode.String() {
				t.Errorf("expected code %s, got %s", tc.wantCode, errResp.Code)
			}
		})
	}
}

func TestStoreFullMapsTo507(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("key-%d", i)
		if code := doJSON(t, http.MethodPost, ts.URL+"/kv/set",
			common.SetRequest{Key: key, Value: "v"}, nil); code != http.StatusOK {
			t.Fatalf("set %s: expected 200, got %d", key, code)
		}
	}

	var errResp common.ErrorResponse
	code := doJSON(t, http.MethodPost, ts.URL+"/kv/set",
		common.SetRequest{Key: "overflow", Value: "v"}, &errResp)
	if code != http.StatusInsufficientStorage {
		t.Fatalf("expected 507, got %d", code)
	}
	if errResp.Code != store.RetCStoreFull.String() {
		t.Errorf("expected code %s, got %s", store.RetCStoreFull, errResp.Code)
	}
}

func TestInvalidRequestBody(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/kv/set", "application/json",
		strings.NewReader("not json"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	// Generate some traffic first
	doJSON(t, http.MethodPost, ts.URL+"/kv/set", common.SetRequest{Key: "k", Value: "v"}, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read metrics: %v", err)
	}
	if !bytes.Contains(body, []byte("shmkv_requests_total")) {
		t.Errorf("expected request counter in metrics output")
	}
}
