// Package store persists finished analysis outcomes.
//
// The Store interface keeps one record per (user, kind), replaced on
// each save. SQLiteStore is the durable backend, using WAL journaling
// and prepared statements over modernc.org/sqlite.
package store
