// Package metrics provides Prometheus instrumentation for the
// completion pipeline.
//
// A Collector owns a private registry and the metric groups for each
// component. Metric groups are nil when metrics are disabled, and all
// recording methods are safe on nil receivers, so callers never guard
// instrumentation calls.
package metrics
