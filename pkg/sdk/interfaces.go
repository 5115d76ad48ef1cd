// Package sdk defines the storage contracts the Celerix IVR handlers consume.
// Both the embedded engine and the DynamoDB backend implement them.
package sdk

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a requested item does not exist in a table.
	ErrNotFound = errors.New("item not found")
	// ErrInvalidCount is returned when a counter field holds a non-numeric value.
	ErrInvalidCount = errors.New("counter field is not numeric")
)

// Item is a single stored document: attribute name to value.
type Item map[string]any

// --- Functional Interfaces (Interface Segregation) ---

// ItemReader fetches a whole item by key.
type ItemReader interface {
	GetItem(ctx context.Context, table, key string) (Item, error)
}

// ItemWriter applies field updates to an item, creating it when absent.
type ItemWriter interface {
	UpdateItem(ctx context.Context, table, key string, fields Item) error
}

// CounterReader reads a numeric field. found is false when the item or field is absent.
type CounterReader interface {
	GetCount(ctx context.Context, table, key, field string) (count int64, found bool, err error)
}

// CounterWriter mutates numeric fields.
type CounterWriter interface {
	// IncrementField unconditionally adds delta to the field, treating absent as zero.
	IncrementField(ctx context.Context, table, key, field string, delta int64) error
	// IncrementIfBelow adds one to the field only if its current value (absent = 0)
	// is strictly below limit. The check and the increment are a single indivisible
	// operation. It reports whether the increment happened.
	IncrementIfBelow(ctx context.Context, table, key, field string, limit int64) (bool, error)
}

// --- Composite Interfaces ---

// RecordStore is the key-value store of caller records and job prompts.
type RecordStore interface {
	ItemReader
	ItemWriter
}

// CounterStore holds per-job admission counters.
type CounterStore interface {
	CounterReader
	CounterWriter
}

// Store is implemented by every backend: it serves records and counters alike.
type Store interface {
	RecordStore
	CounterStore
}
