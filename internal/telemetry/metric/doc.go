// Package metric provides Prometheus metrics for cryptsess.
//
// Metrics include:
//
//   - Sessions opened by state and rejected fixation attempts
//   - Provider reads, writes and destroys by result
//   - Expiry sweeps and swept record counts
//   - Operation latency histograms
//
// Metrics are exposed at /metrics in Prometheus format by the HTTP host.
package metric
