// Package observability exports store activity to Prometheus and OpenTelemetry.
//
// Metrics plugs into a store through lifecycle hooks (commits and rejections)
// and a middleware (dispatch latency). Tracing is a middleware that opens one
// span per dispatch.
package observability
