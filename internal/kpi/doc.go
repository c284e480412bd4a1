// Package kpi aggregates canonical production records into per-period KPI
// snapshots.
//
// Records are grouped by (period bucket, shift, size) with exact key
// equality; size strings must already be canonicalized upstream. All
// reducers are commutative, and float accumulations are summed in sorted
// value order, so a snapshot is bit-for-bit identical for any permutation of
// the input records.
package kpi
