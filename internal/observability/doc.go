// Package observability provides structured logging and Prometheus metrics
// for the portfolio API.
//
// Loggers are zap loggers built from configuration; request-scoped loggers
// carry the chi request id. Metrics live on a private registry exposed at
// /metrics, never on the global default registerer.
package observability
