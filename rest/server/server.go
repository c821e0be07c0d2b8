package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/ValentinKolb/shmKV/lib/store"
	"github.com/ValentinKolb/shmKV/lib/store/shmstore"
	"github.com/ValentinKolb/shmKV/rest/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rest/server")

// ServiceVersion is reported by GET /.
const ServiceVersion = "1.0.0"

// NewServer creates a new REST server for the configured stores. The
// segments are not attached until Attach (or Serve) is called.
//
// Usage:
//
//	s := server.NewServer(config)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewServer(config common.ServerConfig) *Server {
	Logger.Infof("Created REST Server")
	Logger.Infof(config.String())

	return &Server{
		config: config,
		stores: xsync.NewMapOf[string, store.IStore](),
	}
}

type Server struct {
	config common.ServerConfig
	stores *xsync.MapOf[string, store.IStore]
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Attach opens every configured segment, creating those that do not exist
// yet. The attachment policy is deliberately the caller-level fallback
// ("open, and create if not found") - the engine itself never decides this.
func (s *Server) Attach() error {
	for alias, segment := range s.config.Stores {
		st, err := shmstore.OpenOrCreateStore(segment)
		if err != nil {
			return fmt.Errorf("failed to attach store %q (segment %s): %w", alias, segment, err)
		}
		s.stores.Store(alias, st)
		Logger.Infof("Attached store %q to segment %s", alias, segment)
	}
	return nil
}

// Close detaches every attached store. The segments stay alive in the OS
// namespace; unlinking is a deliberate, separate operation.
func (s *Server) Close() error {
	var firstErr error
	s.stores.Range(func(alias string, st store.IStore) bool {
		if err := st.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.stores.Delete(alias)
		return true
	})
	return firstErr
}

// Serve attaches the stores and blocks serving HTTP on the configured
// endpoint.
func (s *Server) Serve() error {
	if err := s.Attach(); err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			Logger.Errorf("Failed to detach stores: %v", err)
		}
	}()

	Logger.Infof("Starting REST server on %s", s.config.Endpoint)
	return http.ListenAndServe(s.config.Endpoint, s.Handler())
}

// --------------------------------------------------------------------------
// Routing
// --------------------------------------------------------------------------

// Handler builds the route table. Every store route resolves the alias,
// invokes exactly one store operation and maps its return code to an HTTP
// status - the service layer adds no semantics of its own.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleInfo)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /{store}/set", s.instrumented("set", s.handleSet))
	mux.HandleFunc("GET /{store}/get/{key}", s.instrumented("get", s.handleGet))
	mux.HandleFunc("DELETE /{store}/delete/{key}", s.instrumented("delete", s.handleDelete))
	mux.HandleFunc("GET /{store}/status", s.instrumented("status", s.handleStatus))

	if s.config.LogLevel == "debug" {
		return loggerMiddleware(mux)
	}
	return mux
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := common.InfoResponse{
		Service: "shmKV",
		Version: ServiceVersion,
	}
	s.stores.Range(func(alias string, _ store.IStore) bool {
		info.Stores = append(info.Stores, alias)
		return true
	})
	sort.Strings(info.Stores)
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	// The service is healthy iff every attached store answers Status
	healthy := true
	s.stores.Range(func(_ string, st store.IStore) bool {
		if _, err := st.Status(); err != nil {
			healthy = false
			return false
		}
		return true
	})
	if !healthy {
		writeError(w, store.NewError(store.RetCNotInitialized, "store is not available"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w, true)
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		writeError(w, store.NewError(store.RetCInternalError, "failed to read request body"))
		return
	}

	var req common.SetRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, common.ErrorResponse{
			Detail: fmt.Sprintf("invalid request body: %v", err),
			Code:   store.RetCInternalError.String(),
		})
		return
	}

	if err := st.Put(req.Key, []byte(req.Value)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.SetResponse{Success: true, Key: req.Key})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}

	key := r.PathValue("key")
	value, stamp, err := st.Get(key)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.GetResponse{
		Key:       key,
		Value:     string(value),
		Timestamp: stamp,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}

	key := r.PathValue("key")
	if err := st.Delete(key); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.DeleteResponse{Success: true, Key: key})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}

	status, err := st.Status()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, common.NewStatusResponse(status))
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// storeFor resolves the {store} path segment to an attached store. An
// unknown alias is a 404 with its own code so clients can tell it apart
// from a missing key.
func (s *Server) storeFor(w http.ResponseWriter, r *http.Request) (store.IStore, bool) {
	alias := r.PathValue("store")
	st, ok := s.stores.Load(alias)
	if !ok {
		writeJSON(w, http.StatusNotFound, common.ErrorResponse{
			Detail: fmt.Sprintf("store %q not found", alias),
			Code:   store.RetCNotFound.String(),
		})
		return nil, false
	}
	return st, true
}

// writeJSON writes a JSON response body with the given status code
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		Logger.Errorf("Failed to write response: %v", err)
	}
}

// writeError maps a store error to its HTTP status and error envelope
func writeError(w http.ResponseWriter, err error) {
	code := store.CodeOf(err)
	writeJSON(w, common.HTTPStatus(code), common.ErrorResponse{
		Detail: err.Error(),
		Code:   code.String(),
	})
}

// instrumented wraps a handler with request counting and latency tracking
// for the /metrics endpoint.
func (s *Server) instrumented(op string, next http.HandlerFunc) http.HandlerFunc {
	requests := metrics.GetOrCreateCounter(fmt.Sprintf(`shmkv_requests_total{op=%q}`, op))
	duration := metrics.GetOrCreateSummary(fmt.Sprintf(`shmkv_request_duration_seconds{op=%q}`, op))

	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requests.Inc()
		next.ServeHTTP(w, r)
		duration.UpdateDuration(start)
	}
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// responseWriter is a custom ResponseWriter that captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing it
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggerMiddleware is a middleware that logs HTTP requests
func loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create custom response writer to capture status code
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		// Process request
		next.ServeHTTP(rw, r)

		// Log the request
		duration := time.Since(start)
		Logger.Debugf("%s %s => %d took %s", r.Method, r.URL.Path, rw.statusCode, duration)
	})
}
