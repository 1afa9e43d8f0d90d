package audit

import (
	"sync"

	"github.com/darmiel/idgate/internal/core"
)

var (
	_ core.Auditor     = (*InMemoryAuditor)(nil)
	_ core.AuditReader = (*InMemoryAuditor)(nil)
)

// DefaultMemoryCapacity is the number of entries kept by NewInMemoryAuditor(0).
const DefaultMemoryCapacity = 10_000

// InMemoryAuditor keeps the most recent audit entries in memory.
type InMemoryAuditor struct {
	mu       sync.Mutex
	entries  []core.AuditEntry
	capacity int
}

// NewInMemoryAuditor returns an auditor holding at most capacity entries.
// Older entries are dropped first.
func NewInMemoryAuditor(capacity int) *InMemoryAuditor {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &InMemoryAuditor{
		entries:  make([]core.AuditEntry, 0),
		capacity: capacity,
	}
}

func (i *InMemoryAuditor) Log(entry core.AuditEntry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.entries = append(i.entries, entry)
	if over := len(i.entries) - i.capacity; over > 0 {
		i.entries = append(i.entries[:0:0], i.entries[over:]...)
	}
	return nil
}

func (i *InMemoryAuditor) GetRecent(limit int) ([]core.AuditEntry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if limit > len(i.entries) || limit <= 0 {
		limit = len(i.entries)
	}
	start := len(i.entries) - limit
	entries := make([]core.AuditEntry, limit)
	copy(entries, i.entries[start:])

	return entries, nil
}

func (i *InMemoryAuditor) Find(filter func(entry core.AuditEntry) bool, limit int) ([]core.AuditEntry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	matches := make([]core.AuditEntry, 0)
	for _, entry := range i.entries {
		if filter(entry) {
			matches = append(matches, entry)
		}
	}

	if limit > 0 && len(matches) > limit {
		matches = matches[len(matches)-limit:]
	}

	return matches, nil
}

func (i *InMemoryAuditor) Close() error {
	return nil
}
