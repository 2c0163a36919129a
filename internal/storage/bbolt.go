package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket    = []byte("config")    // Index version and timestamps
	DocumentsBucket = []byte("documents") // One entry per document path
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
)

const (
	DirPerm     = 0700
	FilePerm    = 0600
	OpenTimeout = 2 * time.Second // Another slimedit holding the lock
)

var ErrLocked = errors.New("index is locked by another process")

// DocumentEntry describes a document the editor has opened or saved
type DocumentEntry struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Format     string    `json:"format"`
	Size       int64     `json:"size"`
	Hash       string    `json:"hash"` // sha256 of the file bytes as written
	Iterations int       `json:"iterations,omitempty"`
	Digest     string    `json:"digest,omitempty"`
	LastOpened time.Time `json:"lastOpened,omitzero"`
	LastSaved  time.Time `json:"lastSaved,omitzero"`
}

// LastUsed returns the most recent of LastOpened and LastSaved
func (e DocumentEntry) LastUsed() time.Time {
	if e.LastSaved.After(e.LastOpened) {
		return e.LastSaved
	}
	return e.LastOpened
}

// Storage provides BBolt-based storage for the document index
type Storage struct {
	db *bolt.DB
}

// Open opens or creates an index database, creating its directory if needed
func Open(path string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), DirPerm); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := bolt.Open(path, FilePerm, &bolt.Options{Timeout: OpenTimeout})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.db.Path()
}

// Initialize creates the bucket structure. It is safe to call on an
// already initialized index.
func (s *Storage) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, DocumentsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}
		if err := config.Put(ConfigVersion, []byte("1")); err != nil {
			return err
		}

		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		return config.Put(ConfigModified, created)
	})
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// GetModified retrieves the last modified timestamp
func (s *Storage) GetModified() (time.Time, error) {
	var modified time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return fmt.Errorf("config bucket not found")
		}
		data := config.Get(ConfigModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

func touchModified(tx *bolt.Tx) error {
	config := tx.Bucket(ConfigBucket)
	if config == nil {
		return fmt.Errorf("config bucket not found")
	}
	modified, _ := time.Now().MarshalBinary()
	return config.Put(ConfigModified, modified)
}

// PutDocument stores an entry keyed by its path. Zero timestamps and an empty
// ID are filled from the existing entry, so callers only set what changed.
func (s *Storage) PutDocument(entry DocumentEntry) error {
	if entry.Path == "" {
		return fmt.Errorf("document path is empty")
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		docs := tx.Bucket(DocumentsBucket)
		if docs == nil {
			return fmt.Errorf("documents bucket not found")
		}

		if data := docs.Get([]byte(entry.Path)); data != nil {
			var prev DocumentEntry
			if err := json.Unmarshal(data, &prev); err == nil {
				if entry.ID == "" {
					entry.ID = prev.ID
				}
				if entry.LastOpened.IsZero() {
					entry.LastOpened = prev.LastOpened
				}
				if entry.LastSaved.IsZero() {
					entry.LastSaved = prev.LastSaved
				}
			}
		}
		if entry.ID == "" {
			entry.ID = uuid.New().String()
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		if err := docs.Put([]byte(entry.Path), data); err != nil {
			return err
		}
		return touchModified(tx)
	})
}

// GetDocument returns a single entry, or nil if the path is not indexed
func (s *Storage) GetDocument(path string) (*DocumentEntry, error) {
	var entry *DocumentEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		docs := tx.Bucket(DocumentsBucket)
		if docs == nil {
			return fmt.Errorf("documents bucket not found")
		}
		data := docs.Get([]byte(path))
		if data == nil {
			return nil
		}
		entry = &DocumentEntry{}
		return json.Unmarshal(data, entry)
	})
	return entry, err
}

// ListDocuments returns all entries, most recently used first
func (s *Storage) ListDocuments() ([]DocumentEntry, error) {
	var entries []DocumentEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		docs := tx.Bucket(DocumentsBucket)
		if docs == nil {
			return fmt.Errorf("documents bucket not found")
		}
		return docs.ForEach(func(k, v []byte) error {
			var entry DocumentEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LastUsed().After(entries[j].LastUsed())
	})
	return entries, nil
}

// RemoveDocument removes an entry. It reports whether the path was indexed.
func (s *Storage) RemoveDocument(path string) (bool, error) {
	var found bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		docs := tx.Bucket(DocumentsBucket)
		if docs == nil {
			return fmt.Errorf("documents bucket not found")
		}
		if docs.Get([]byte(path)) == nil {
			return nil
		}
		found = true
		if err := docs.Delete([]byte(path)); err != nil {
			return err
		}
		return touchModified(tx)
	})
	return found, err
}

// Compact creates a compacted copy of the database, removing unused space.
// This is useful after forgetting many documents.
func (s *Storage) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	// Create new database
	dst, err := bolt.Open(tmpPath, FilePerm, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	// Copy all buckets
	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	// Reopen database
	s.db, err = bolt.Open(srcPath, FilePerm, &bolt.Options{Timeout: OpenTimeout})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
