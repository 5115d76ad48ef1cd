package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/celerix-dev/celerix-ivr/pkg/sdk"
)

// MemStore is a thread-safe in-memory table store.
type MemStore struct {
	mu sync.RWMutex
	// Structure: [table][key]item
	data      map[string]map[string]sdk.Item
	persister *Persistence
	queue     chan persistTask
	wg        sync.WaitGroup
	logger    *slog.Logger
}

type persistTask struct {
	table, key string
	item       sdk.Item
}

// NewMemStore initializes a store.
// It accepts existing data (from LoadAll) and an optional persister.
func NewMemStore(initialData map[string]map[string]sdk.Item, p *Persistence) *MemStore {
	if initialData == nil {
		initialData = make(map[string]map[string]sdk.Item)
	}
	m := &MemStore{
		data:      initialData,
		persister: p,
		logger:    slog.Default(),
	}
	if p != nil {
		m.queue = make(chan persistTask, 256)
		go m.writeLoop()
	}
	return m
}

// SetLogger replaces the logger used to report background persistence failures.
func (m *MemStore) SetLogger(logger *slog.Logger) {
	m.logger = logger
}

// Close flushes pending writes and stops the background writer.
func (m *MemStore) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wg.Wait()
	if m.queue != nil {
		close(m.queue)
		m.queue = nil
	}
}

// --- Interface Implementation ---

func (m *MemStore) GetItem(ctx context.Context, table, key string) (sdk.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.data[table][key]
	if !ok {
		return nil, ErrNotFound
	}
	return copyItem(item), nil
}

func (m *MemStore) UpdateItem(ctx context.Context, table, key string, fields sdk.Item) error {
	m.mu.Lock()
	item := m.itemLocked(table, key)
	for k, v := range fields {
		item[k] = v
	}
	m.enqueueLocked(table, key, item)
	m.mu.Unlock()
	return nil
}

func (m *MemStore) GetCount(ctx context.Context, table, key, field string) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.data[table][key][field]
	if !ok {
		return 0, false, nil
	}
	n, err := sdk.ToInt64(val)
	if err != nil {
		return 0, false, fmt.Errorf("%s/%s.%s: %w", table, key, field, err)
	}
	return n, true, nil
}

func (m *MemStore) IncrementField(ctx context.Context, table, key, field string, delta int64) error {
	m.mu.Lock()
	current, err := m.countLocked(table, key, field)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	item := m.itemLocked(table, key)
	item[field] = current + delta
	m.enqueueLocked(table, key, item)
	m.mu.Unlock()
	return nil
}

// IncrementIfBelow holds the write lock across the read and the write,
// so concurrent callers are serialised on the check.
func (m *MemStore) IncrementIfBelow(ctx context.Context, table, key, field string, limit int64) (bool, error) {
	m.mu.Lock()
	current, err := m.countLocked(table, key, field)
	if err != nil {
		m.mu.Unlock()
		return false, err
	}
	if current >= limit {
		m.mu.Unlock()
		return false, nil
	}
	item := m.itemLocked(table, key)
	item[field] = current + 1
	m.enqueueLocked(table, key, item)
	m.mu.Unlock()
	return true, nil
}

// Tables returns the sorted names of all tables holding at least one item.
func (m *MemStore) Tables() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []string
	for name := range m.data {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}

// DumpTable returns a copy of every item in a table, keyed by item key.
func (m *MemStore) DumpTable(table string) map[string]sdk.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]sdk.Item, len(m.data[table]))
	for k, item := range m.data[table] {
		out[k] = copyItem(item)
	}
	return out
}

// itemLocked returns the live item, creating it if needed.
// It MUST be called while holding m.mu.Lock.
func (m *MemStore) itemLocked(table, key string) sdk.Item {
	if m.data[table] == nil {
		m.data[table] = make(map[string]sdk.Item)
	}
	if m.data[table][key] == nil {
		m.data[table][key] = make(sdk.Item)
	}
	return m.data[table][key]
}

// countLocked reads a counter field, treating absent as zero.
// It MUST be called while holding m.mu.Lock or m.mu.RLock.
func (m *MemStore) countLocked(table, key, field string) (int64, error) {
	val, ok := m.data[table][key][field]
	if !ok {
		return 0, nil
	}
	n, err := sdk.ToInt64(val)
	if err != nil {
		return 0, fmt.Errorf("%s/%s.%s: %w", table, key, field, err)
	}
	return n, nil
}

// enqueueLocked hands a snapshot of the item to the background writer.
// It MUST be called while holding m.mu.Lock so snapshots reach disk in mutation order.
func (m *MemStore) enqueueLocked(table, key string, item sdk.Item) {
	if m.queue == nil {
		return
	}
	m.wg.Add(1)
	m.queue <- persistTask{table: table, key: key, item: copyItem(item)}
}

func (m *MemStore) writeLoop() {
	for task := range m.queue {
		if err := m.persister.SaveItem(task.table, task.key, task.item); err != nil {
			m.logger.Error("persist item failed", "table", task.table, "key", task.key, "error", err)
		}
		m.wg.Done()
	}
}

func copyItem(item sdk.Item) sdk.Item {
	out := make(sdk.Item, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
