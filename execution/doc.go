// Package execution drives pipeline runs against the execution server.
// It owns the single run session (Idle, Requested, Running, Finished),
// maps node status pushes onto the graph, and finalizes sessions on
// terminal frames or connection loss. Frame handling is a pure reducer
// over the session state so the full lifecycle is testable without a
// socket.
package execution
