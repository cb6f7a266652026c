// Package sqlite provides a SQLite-based implementation of the document and
// conversation store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. A single database serves:
//
//   - DocumentStore: documents, chunks and their embeddings
//   - ConversationStore: conversations and their messages
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// Timestamps are stored as Unix nanoseconds so that ordering is exact.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-rag/data/rag.db
//
// # Thread Safety
//
// All operations are thread-safe. Writes are serialised through a single
// connection, so transactions never contend for the SQLite write lock.
package sqlite
