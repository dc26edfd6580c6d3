// Package progress carries periodic harvest snapshots from the run loop to
// pluggable sinks (logs, Prometheus, the status endpoint).
package progress
