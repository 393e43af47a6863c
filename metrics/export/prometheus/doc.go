// Package prometheus exposes goAuthClient counters to Prometheus.
//
// [NewPrometheusExporter] wraps a [goAuthClient.Client] in a
// prometheus.Collector and serves it through promhttp. Counter names are
// prefixed goauthclient_*_total; the single histogram is
// goauthclient_refresh_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers mount the
//     Handler or register the exporter themselves.
//   - Mutate client state.
package prometheus
