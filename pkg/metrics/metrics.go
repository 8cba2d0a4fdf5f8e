// Package metrics holds the Prometheus collectors exported on /metrics.
// Constructors register on the given Registerer and return nil-safe recorders.
package metrics

const namespace = "nightshift"
