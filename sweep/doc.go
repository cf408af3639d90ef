// Package sweep turns declarative parameter variations into concrete,
// deduplicated simulation configurations and computes global sensitivity
// indices over their objective values.
//
// # Reading Guide
//
// Start with these three files to understand the pipeline:
//   - variation.go: ElementaryVariation (discrete/distributed), CoVariation, and the CDF/Inverse contract
//   - parsed.go: partitioning variations by storage location while keeping dimension indices
//   - materialize.go: mapping design rows through inverse CDFs into persisted configuration ids
//
// # Architecture
//
// Data flows leaf to root: variations -> ParsedVariations -> sampling method
// (grid.go, lhs.go, sobol.go, rbd.go) -> design matrix of CDF coordinates ->
// materialization (ids via the store collaborator) -> external evaluation
// (objective values per configuration) -> GSA calculator (moat.go,
// sobol_indices.go, rbd_indices.go) -> indices.
//
// Persistence lives in the sweep/store sub-package; sweep itself only sees
// the Store interface declared in materialize.go. Objective evaluation is fully delegated to an
// Evaluator collaborator; this package memoizes and aggregates replicate
// values but never schedules runs itself.
//
// All randomness flows through explicit *rand.Rand handles derived from a
// PartitionedRNG (rng.go): two runs with the same master seed and identical
// inputs MUST produce bit-for-bit identical designs.
package sweep
