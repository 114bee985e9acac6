// Package catalog synchronizes the local pipeline list with the
// execution server's stored catalog. A sync replaces the local set
// wholesale; the selected pipeline survives only when the new catalog
// still contains it.
package catalog
