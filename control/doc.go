// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for the log relay.
//
// Provides:
//   - YAML configuration with defaults and validation
//   - Prometheus collectors on a per-instance registry
//   - Named debug probes dumped as a state snapshot
//   - The process-scoped registry of listener socket paths
package control
