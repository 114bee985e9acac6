// Package store keeps the dashboard's saved pipelines as a local keyed
// list, ordered most-recently-updated first. Records persist through a
// pluggable backend; the file backend writes board envelopes to a single
// JSON document under a base directory.
package store
