// Package relational implements the normalized row-oriented backend.
//
// The store owns a single DuckDB database file with two tables joined on
// ticker_id: a ticker dimension and a price fact table. Bulk inserts are
// transactional (all-or-nothing) and the four analytical queries are
// expressed as join/aggregate SQL, so the backend's expressiveness and
// latency can be compared against the partitioned columnar backend.
package relational
