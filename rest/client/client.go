package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/shmKV/lib/store"
	"github.com/ValentinKolb/shmKV/rest/common"
	"github.com/cenkalti/backoff/v4"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rest/client")

// NewRESTStore creates a store backed by a remote shmKV server. The returned
// store is safe for concurrent use.
func NewRESTStore(config common.ClientConfig) (store.IStore, error) {
	if len(config.Endpoints) == 0 {
		return nil, fmt.Errorf("at least one endpoint is required")
	}
	if config.Store == "" {
		return nil, fmt.Errorf("store alias is required")
	}

	timeout := time.Duration(config.TimeoutSecond) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	Logger.Infof("Created REST client")
	Logger.Infof(config.String())

	return &restStore{
		config: config,
		http:   &http.Client{Timeout: timeout},
	}, nil
}

type restStore struct {
	config common.ClientConfig
	http   *http.Client
	next   atomic.Uint64
	closed atomic.Bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (c *restStore) Put(key string, value []byte) error {
	// The key travels in the body here, but a stored "." or ".." could
	// never be read back through the path routes, so reject it up front
	if err := checkPathSafe(key); err != nil {
		return err
	}

	req := common.SetRequest{Key: key, Value: string(value)}
	var resp common.SetResponse
	return c.invoke(http.MethodPost, "set", req, &resp)
}

func (c *restStore) Get(key string) ([]byte, int64, error) {
	// An empty key cannot appear in a route path. It can never be stored
	// either, so the answer is known locally.
	if key == "" {
		return nil, 0, store.NewError(store.RetCNotFound, "key not found")
	}
	if err := checkPathSafe(key); err != nil {
		return nil, 0, err
	}

	var resp common.GetResponse
	err := c.invoke(http.MethodGet, "get/"+url.PathEscape(key), nil, &resp)
	if err != nil {
		return nil, 0, err
	}
	return []byte(resp.Value), resp.Timestamp, nil
}

func (c *restStore) Delete(key string) error {
	if key == "" {
		return store.NewError(store.RetCNotFound, "key not found")
	}
	if err := checkPathSafe(key); err != nil {
		return err
	}

	var resp common.DeleteResponse
	return c.invoke(http.MethodDelete, "delete/"+url.PathEscape(key), nil, &resp)
}

func (c *restStore) Status() (store.Status, error) {
	var resp common.StatusResponse
	if err := c.invoke(http.MethodGet, "status", nil, &resp); err != nil {
		return store.Status{}, err
	}

	status := store.Status{
		Version:    resp.Version,
		EntryCount: resp.EntryCount,
		Capacity:   resp.MaxEntries,
		Entries:    make([]store.Entry, len(resp.Entries)),
	}
	for i, e := range resp.Entries {
		status.Entries[i] = store.Entry{
			Key:       e.Key,
			Value:     []byte(e.Value),
			Timestamp: e.Timestamp,
		}
	}
	return status, nil
}

// Close marks the client as closed. It never touches the remote server, the
// segment stays attached there.
func (c *restStore) Close() error {
	c.closed.Store(true)
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// checkPathSafe rejects keys the HTTP routes cannot address: "." and ".."
// are collapsed by server-side path cleaning before routing, so they can
// never round-trip. A directly attached segment stores them fine; this is
// a limitation of the HTTP binding only.
func checkPathSafe(key string) error {
	if key == "." || key == ".." {
		return store.NewError(store.RetCInvalidKey,
			fmt.Sprintf("key %q cannot be represented in a request path", key))
	}
	return nil
}

// endpoint returns the next endpoint in round-robin order.
func (c *restStore) endpoint() string {
	n := c.next.Add(1) - 1
	return strings.TrimRight(c.config.Endpoints[n%uint64(len(c.config.Endpoints))], "/")
}

// invoke sends one request to the remote store and decodes the JSON response
// into out. Transport failures are retried with exponential backoff across
// the configured endpoints; a response from the server (success or error) is
// always final.
func (c *restStore) invoke(method, path string, body, out any) error {
	if c.closed.Load() {
		return store.NewError(store.RetCNotInitialized, "client is closed")
	}

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return store.NewError(store.RetCInternalError, fmt.Sprintf("failed to marshal request: %v", err))
		}
		payload = data
	}

	operation := func() error {
		target := fmt.Sprintf("%s/%s/%s", c.endpoint(), url.PathEscape(c.config.Store), path)

		req, err := http.NewRequest(method, target, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(store.NewError(store.RetCInternalError, err.Error()))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			Logger.Debugf("Request to %s failed: %v", target, err)
			return err // transport error, retry on the next endpoint
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return backoff.Permanent(store.NewError(store.RetCInternalError,
					fmt.Sprintf("failed to decode response: %v", err)))
			}
			return nil
		}

		// The server answered with an error envelope. Reconstruct the typed
		// error and stop retrying, the outcome will not change.
		var errResp common.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
			return backoff.Permanent(store.NewError(store.RetCInternalError,
				fmt.Sprintf("server returned %d with unreadable body", resp.StatusCode)))
		}
		return backoff.Permanent(store.NewError(common.RetCodeFromName(errResp.Code), errResp.Detail))
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.retryCount()))
	return c.unwrap(backoff.Retry(operation, policy))
}

func (c *restStore) retryCount() int {
	if c.config.RetryCount < 0 {
		return 0
	}
	return c.config.RetryCount
}

// unwrap converts a transport failure that survived all retries into the
// typed error the interface contract requires.
func (c *restStore) unwrap(err error) error {
	if err == nil {
		return nil
	}
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		return storeErr
	}
	return store.NewError(store.RetCInternalError, err.Error())
}
