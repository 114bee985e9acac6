// Package board holds the in-memory pipeline graph the dashboard edits:
// nodes with declared port arity, edges between ports, and per-node
// execution status. It also computes the readiness report used for live
// issue counting while check mode is active.
package board
