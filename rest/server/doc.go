// Package server implements the HTTP server of the REST service layer.
//
// A server fronts one or more shared-memory segments, each registered under
// a route alias. On startup it attaches to every configured segment
// (creating those that do not exist yet) and exposes them under
// /{store}/set, /{store}/get/{key}, /{store}/delete/{key} and
// /{store}/status. Every handler invokes exactly one store operation and
// translates its typed return code to an HTTP status via the mapping in the
// common package.
//
// Operational endpoints: GET / reports the service version and attached
// stores, GET /health verifies that every store answers, and GET /metrics
// exposes request counters and latency summaries in Prometheus format.
package server
