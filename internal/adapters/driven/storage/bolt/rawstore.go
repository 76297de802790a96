// Package bolt persists raw filings in a bbolt key/value file so that
// re-processing never requires re-fetching.
package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hedgeintel/filingqa/internal/core/domain"
	"github.com/hedgeintel/filingqa/internal/core/ports/driven"
)

// Ensure RawStore implements the interface.
var _ driven.RawStore = (*RawStore)(nil)

// DatabaseFile is the raw store file name inside the data directory.
const DatabaseFile = "raw.db"

var (
	bucketContent = []byte("content") // TICKER/type/hash -> raw bytes
	bucketMeta    = []byte("meta")    // TICKER/type/hash -> document JSON
	bucketLatest  = []byte("latest")  // TICKER/type -> hash
)

// RawStore implements driven.RawStore on bbolt.
type RawStore struct {
	db   *bbolt.DB
	path string
}

// NewRawStore opens (or creates) the raw store in dataDir.
func NewRawStore(dataDir string) (*RawStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	path := filepath.Join(dataDir, DatabaseFile)

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening raw store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketContent, bucketMeta, bucketLatest} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &RawStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *RawStore) Path() string {
	return s.path
}

func entryKey(ref domain.DocumentRef, hash string) []byte {
	return []byte(ref.Key() + "/" + hash)
}

// Save stores raw and marks it as the latest for its ref in one transaction.
func (s *RawStore) Save(_ context.Context, raw *domain.RawDocument) error {
	if raw == nil || raw.Document.ContentHash == "" {
		return domain.ErrInvalidInput
	}

	meta, err := json.Marshal(raw.Document)
	if err != nil {
		return fmt.Errorf("marshalling document: %w", err)
	}
	key := entryKey(raw.Document.Ref, raw.Document.ContentHash)

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketContent).Put(key, raw.Content); err != nil {
			return fmt.Errorf("saving content: %w", err)
		}
		if err := tx.Bucket(bucketMeta).Put(key, meta); err != nil {
			return fmt.Errorf("saving metadata: %w", err)
		}
		if err := tx.Bucket(bucketLatest).Put([]byte(raw.Document.Ref.Key()), []byte(raw.Document.ContentHash)); err != nil {
			return fmt.Errorf("saving latest pointer: %w", err)
		}
		return nil
	})
}

// Get returns the raw document with the given hash.
func (s *RawStore) Get(_ context.Context, ref domain.DocumentRef, hash string) (*domain.RawDocument, error) {
	var raw domain.RawDocument
	err := s.db.View(func(tx *bbolt.Tx) error {
		return readEntry(tx, entryKey(ref, hash), &raw)
	})
	if err != nil {
		return nil, err
	}
	return &raw, nil
}

// Latest returns the most recently saved raw document for ref.
func (s *RawStore) Latest(_ context.Context, ref domain.DocumentRef) (*domain.RawDocument, error) {
	var raw domain.RawDocument
	err := s.db.View(func(tx *bbolt.Tx) error {
		hash := tx.Bucket(bucketLatest).Get([]byte(ref.Key()))
		if hash == nil {
			return domain.ErrNotFound
		}
		return readEntry(tx, entryKey(ref, string(hash)), &raw)
	})
	if err != nil {
		return nil, err
	}
	return &raw, nil
}

// Hashes lists the stored content hashes for ref in sorted order.
func (s *RawStore) Hashes(_ context.Context, ref domain.DocumentRef) ([]string, error) {
	prefix := []byte(ref.Key() + "/")
	hashes := []string{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketMeta).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			hashes = append(hashes, string(k[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hashes, nil
}

// Close closes the database.
func (s *RawStore) Close() error {
	return s.db.Close()
}

// readEntry decodes one stored filing. Values are copied because bbolt
// memory is only valid inside the transaction.
func readEntry(tx *bbolt.Tx, key []byte, raw *domain.RawDocument) error {
	meta := tx.Bucket(bucketMeta).Get(key)
	if meta == nil {
		return domain.ErrNotFound
	}
	if err := json.Unmarshal(meta, &raw.Document); err != nil {
		return fmt.Errorf("unmarshaling document: %w", err)
	}
	raw.Content = bytes.Clone(tx.Bucket(bucketContent).Get(key))
	return nil
}
