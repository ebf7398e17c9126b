// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for liveplot
// producers and the reference consumer.
//
// Provides:
//   - Typed configuration with defaults and YAML loading
//   - Prometheus-backed metrics with a plain snapshot view
//   - Debug probe registration and state export
package control
