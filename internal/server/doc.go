// Package server exposes the calendar slot API over HTTP.
//
// # Key Components
//
// ServerContext holds the dependencies shared by all handlers: the slot
// service, the config store, the logger, metrics and the audit logger.
//
// HTTPServer registers the routes on a ServeMux:
//   - GET /slots: slot choices for the active configuration
//   - GET /config: the mutable configuration subset
//   - POST /config/update: whole replacement of the mutable subset
//   - GET /calserv/: plain-text liveness
//   - GET /healthz, /readyz, /healthz/detailed: Kubernetes probes
//
// Every request carries an X-Request-ID (client-supplied or a generated
// UUID) that is echoed in the response and attached to log lines.
//
// MetricsServer serves Prometheus metrics on a dedicated port.
//
// # Error Responses
//
// Upstream failures are logged with full detail and answered with a fixed
// message, e.g. 500 {"error":"Failed to retrieve slots."}. Tokens, assertions
// and key material never appear in responses.
package server
