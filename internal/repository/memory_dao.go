package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/gin-admin-kit/internal/admin"
)

// MemoryDAO is an admin.DAO keeping records in insertion order in memory.
// Search matches any field value case-insensitively.
type MemoryDAO struct {
	mu      sync.RWMutex
	order   []string
	records map[string]admin.Record
}

// NewMemoryDAO returns a DAO holding seed. Seed records without an "id"
// field are given one.
func NewMemoryDAO(seed ...admin.Record) *MemoryDAO {
	d := &MemoryDAO{records: map[string]admin.Record{}}
	for _, rec := range seed {
		rec = copyRecord(rec)
		id := fmt.Sprint(rec["id"])
		if rec["id"] == nil || id == "" {
			id = uuid.NewString()
		}
		rec["id"] = id
		if _, exists := d.records[id]; !exists {
			d.order = append(d.order, id)
		}
		d.records[id] = rec
	}
	return d
}

// NewMemoryUserDAO returns a MemoryDAO seeded with three demo users.
func NewMemoryUserDAO() *MemoryDAO {
	return NewMemoryDAO(
		admin.Record{"id": "1", "name": "Alice", "email": "alice@example.com", "role": "admin"},
		admin.Record{"id": "2", "name": "Bob", "email": "bob@example.com", "role": "user"},
		admin.Record{"id": "3", "name": "Charlie", "email": "charlie@example.com", "role": "user"},
	)
}

func (d *MemoryDAO) List(_ context.Context, offset, limit int, search string) ([]admin.Record, int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	term := strings.ToLower(strings.TrimSpace(search))
	matches := make([]admin.Record, 0, len(d.order))
	for _, id := range d.order {
		rec := d.records[id]
		if term == "" || recordContains(rec, term) {
			matches = append(matches, rec)
		}
	}
	total := len(matches)

	if limit > 0 {
		if offset < 0 {
			offset = 0
		}
		if offset > total {
			offset = total
		}
		end := offset + limit
		if end > total {
			end = total
		}
		matches = matches[offset:end]
	}

	out := make([]admin.Record, len(matches))
	for i, rec := range matches {
		out[i] = copyRecord(rec)
	}
	return out, total, nil
}

func (d *MemoryDAO) Get(_ context.Context, id string) (admin.Record, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	rec, ok := d.records[id]
	if !ok {
		return nil, admin.ErrRecordNotFound
	}
	return copyRecord(rec), nil
}

func (d *MemoryDAO) Create(_ context.Context, data map[string]any) (admin.Record, error) {
	rec := admin.Record{}
	for k, v := range data {
		rec[k] = v
	}
	id := uuid.NewString()
	rec["id"] = id

	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[id] = rec
	d.order = append(d.order, id)
	return copyRecord(rec), nil
}

func (d *MemoryDAO) Update(_ context.Context, id string, data map[string]any) (admin.Record, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, ok := d.records[id]
	if !ok {
		return nil, admin.ErrRecordNotFound
	}
	for k, v := range data {
		if k == "id" {
			continue
		}
		rec[k] = v
	}
	return copyRecord(rec), nil
}

func (d *MemoryDAO) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.records[id]; !ok {
		return admin.ErrRecordNotFound
	}
	delete(d.records, id)
	for i, existing := range d.order {
		if existing == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

func recordContains(rec admin.Record, term string) bool {
	for _, v := range rec {
		if v == nil {
			continue
		}
		if strings.Contains(strings.ToLower(fmt.Sprint(v)), term) {
			return true
		}
	}
	return false
}

func copyRecord(rec admin.Record) admin.Record {
	out := make(admin.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
