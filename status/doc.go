// Package status exposes the dashboard core's runtime state over HTTP:
// connection health, run session, catalog and board readiness. The
// endpoints are read-only; all mutations go through the coordinators.
package status
