// Package postgres streams frames into and out of PostgreSQL.
//
// Ingest (Fetch) executes a query, buffers rows into type-dispatched
// column accumulators, and yields completed frames whenever the
// accumulated byte size crosses a configured threshold. Egress (Push)
// builds one parameterized upsert statement from a frame's schema and
// streams the frame's rows into it inside a single transaction.
//
// Concurrent Fetch and Push calls may share one pgxpool.Pool; each call
// holds an independent logical connection and, for Push, its own
// transaction.
package postgres
