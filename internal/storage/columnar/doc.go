// Package columnar implements the partitioned column-oriented backend.
//
// Bars are laid out on disk as one Parquet file per ticker under
// ticker=<SYMBOL>/ directories, each internally ordered by timestamp. The
// ticker dimension is carried by the partition key itself rather than a
// separate relation, trading join capability for partition pruning: a
// single-ticker query opens exactly one file.
//
// Besides pruned range queries the package computes the two rolling-window
// statistics (trailing average, trailing volatility of returns), each
// evaluated strictly within one ticker's series.
package columnar
