// Package dashboard assembles the core: configuration, logging,
// observability, the protocol client, the coordinators and the local
// board store. It is the single entry point a frontend or the status
// surface talks to.
package dashboard
