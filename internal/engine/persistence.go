package engine

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/celerix-dev/celerix-ivr/pkg/sdk"
)

// Persistence handles the disk I/O for the MemStore.
// Every table is a bbolt bucket; every item is a JSON document under its key.
type Persistence struct {
	Path string
	db   *bolt.DB
}

// NewPersistence opens (or creates) the bolt file at path.
func NewPersistence(path string) (*Persistence, error) {
	// Ensure the data directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	return &Persistence{Path: path, db: db}, nil
}

// Close releases the bolt file lock.
func (p *Persistence) Close() error {
	return p.db.Close()
}

// SaveItem writes a single item inside one bolt transaction.
func (p *Persistence) SaveItem(table, key string, item sdk.Item) error {
	bytes, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return p.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(table))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), bytes)
	})
}

// LoadAll returns every item of every table found in the bolt file.
func (p *Persistence) LoadAll() (map[string]map[string]sdk.Item, error) {
	allData := make(map[string]map[string]sdk.Item)

	err := p.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bolt.Bucket) error {
			table := string(name)
			items := make(map[string]sdk.Item)
			err := b.ForEach(func(k, v []byte) error {
				var item sdk.Item
				if err := json.Unmarshal(v, &item); err != nil {
					// Skip corrupted entries instead of failing the whole load
					slog.Warn("could not unmarshal stored item", "table", table, "key", string(k), "error", err)
					return nil
				}
				items[string(k)] = item
				return nil
			})
			if err != nil {
				return err
			}
			allData[table] = items
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return allData, nil
}
