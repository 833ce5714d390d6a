// Package sensor implements persistence for registered sensors.
//
// Store is the contract the security controller depends on. Three
// implementations are provided: MemoryStore for tests and ephemeral runs,
// FileStore which keeps a YAML document on disk, and SQLiteStore backed by
// modernc.org/sqlite.
package sensor
