// Package storage provides the BBolt database interface for slimedit's document index.
//
// Database structure uses two buckets:
//   - config: index version, creation and modification timestamps
//   - documents: one JSON entry per document path (format, size, content
//     hash, KDF settings, last opened and saved times)
//
// The index never holds passwords, keys, salts or document text. It backs
// the "recent" and "forget" commands and lets the editor show what it
// last knew about a file without decrypting it.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
package storage
