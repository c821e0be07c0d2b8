package common

import (
	"net/http"

	"github.com/ValentinKolb/shmKV/lib/store"
)

// --------------------------------------------------------------------------
// API Models
// --------------------------------------------------------------------------

// SetRequest is the body of POST /{store}/set.
type SetRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// SetResponse is the body of a successful POST /{store}/set.
type SetResponse struct {
	Success bool   `json:"success"`
	Key     string `json:"key"`
}

// GetResponse is the body of a successful GET /{store}/get/{key}.
type GetResponse struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"`
}

// DeleteResponse is the body of a successful DELETE /{store}/delete/{key}.
type DeleteResponse struct {
	Success bool   `json:"success"`
	Key     string `json:"key"`
}

// StatusEntry is one occupied slot as reported by GET /{store}/status.
type StatusEntry struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Timestamp int64  `json:"timestamp"`
}

// StatusResponse is the body of a successful GET /{store}/status.
type StatusResponse struct {
	Version    uint32        `json:"version"`
	EntryCount uint32        `json:"entry_count"`
	MaxEntries int           `json:"max_entries"`
	Entries    []StatusEntry `json:"entries"`
}

// InfoResponse is the body of GET /.
type InfoResponse struct {
	Service string   `json:"service"`
	Version string   `json:"version"`
	Stores  []string `json:"stores"`
}

// ErrorResponse is the body of every non-2xx response. Code carries the
// store return code by name so clients can translate mechanically instead
// of guessing from the HTTP status.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

// NewStatusResponse converts a store snapshot into its API model.
func NewStatusResponse(status store.Status) *StatusResponse {
	resp := &StatusResponse{
		Version:    status.Version,
		EntryCount: status.EntryCount,
		MaxEntries: status.Capacity,
		Entries:    make([]StatusEntry, len(status.Entries)),
	}
	for i, e := range status.Entries {
		resp.Entries[i] = StatusEntry{
			Key:       e.Key,
			Value:     string(e.Value),
			Timestamp: e.Timestamp,
		}
	}
	return resp
}

// --------------------------------------------------------------------------
// Return Code <-> HTTP Mapping
// --------------------------------------------------------------------------

// HTTPStatus maps a store return code to the HTTP status the service
// contract prescribes: missing things are 404, the fixed-size limits are
// 413, a full table is 507 and a detached store is 503.
func HTTPStatus(code store.RetCode) int {
	switch code {
	case store.RetCSuccess:
		return http.StatusOK
	case store.RetCEmptyKey, store.RetCInvalidKey:
		return http.StatusBadRequest
	case store.RetCKeyTooLong, store.RetCValueTooLong:
		return http.StatusRequestEntityTooLarge
	case store.RetCNotFound:
		return http.StatusNotFound
	case store.RetCStoreFull:
		return http.StatusInsufficientStorage
	case store.RetCNotInitialized:
		return http.StatusServiceUnavailable
	case store.RetCAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RetCodeFromName is the inverse of RetCode.String, used by the REST client
// to reconstruct the typed error from an ErrorResponse.
func RetCodeFromName(name string) store.RetCode {
	for code := store.RetCSuccess; code <= store.RetCAlreadyExists; code++ {
		if code.String() == name {
			return code
		}
	}
	return store.RetCInternalError
}
