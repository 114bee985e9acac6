// Package codec serializes pipeline records into the versioned board
// envelope used for file download/upload, local persistence and ad-hoc
// execution requests, and parses envelopes back with defaulting for
// fields older exports omit.
package codec
