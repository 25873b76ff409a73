// Package providers defines the upstream abstraction used to stream chat
// completions.
//
// # Overview
//
// An Upstream opens one streaming completion per chat turn and exposes the
// reply as a DeltaStream: a pull-based, finite sequence of text fragments
// that ends with io.EOF. Adapters for concrete wire formats live in
// subpackages (see providers/openai).
//
// # Errors
//
// Failures are reported with typed errors so callers can react with
// errors.As:
//
//   - *ConfigError: no credential configured; returned before any network call
//   - *HTTPError: the upstream answered with a non-2xx status; carries the body
//   - *TransportError: the upstream could not be reached, reset the
//     connection, or exceeded the configured timeout
//
// Nothing is retried. A turn that fails is reported to the end user.
//
// # Health
//
// HTTPProvider tracks request outcomes passively. After UnhealthyThreshold
// consecutive failures the provider reports itself unhealthy until the
// next success; the readiness endpoint surfaces this.
package providers
