// Package ingest implements the batched ingestion pipeline: per-unit
// validation, duplicate rejection, filesystem side effects, atomic chunk
// commits with rollback, and the progress accounting the driving client
// carries between calls.
package ingest

import "strings"

// DupIndex is the set of natural keys a job must reject: keys already in
// the store (seeded once per chunk from a single batched lookup) plus
// keys accepted earlier in the same job. It is an early reject only; the
// store's unique index remains the final arbiter between racing jobs.
type DupIndex struct {
	keys map[string]struct{}
}

// NewDupIndex builds an index over the keys the store already holds.
func NewDupIndex(existing []string) *DupIndex {
	d := &DupIndex{keys: make(map[string]struct{}, len(existing))}
	for _, k := range existing {
		d.keys[normalizeKey(k)] = struct{}{}
	}
	return d
}

// Seen reports whether the key was in the store or accepted earlier in
// this job.
func (d *DupIndex) Seen(key string) bool {
	_, ok := d.keys[normalizeKey(key)]
	return ok
}

// Mark records a key as accepted. Called immediately after a unit passes
// validation so intra-chunk repeats are caught without another store
// round trip.
func (d *DupIndex) Mark(key string) {
	d.keys[normalizeKey(key)] = struct{}{}
}

func normalizeKey(key string) string {
	return strings.TrimSpace(key)
}
