/*
Package httpserver exposes the encryption pipeline over HTTP.

# Endpoints

  - GET  /encryption?conf_path=<scheme>://<container>/<key>
  - POST /encryption with body {"conf_path": "<scheme>://<container>/<key>"}
  - GET  /livez, /readyz: liveness and readiness
  - GET  /drain, /undrain: toggle readiness for load balancer draining
  - /debug/pprof when profiling is enabled

Both /encryption forms run one pipeline invocation and answer with
{"message": "..."} on success or {"error": "..."} on failure. A missing or
malformed conf_path is a 400, every other failure a 500.

Prometheus metrics are served by a separate listener (see package metrics).
*/
package httpserver
