// Package api serves the harvester's status endpoints: liveness, Prometheus
// metrics and the latest progress snapshot.
package api
