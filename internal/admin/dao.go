package admin

import (
	"context"
	"errors"
)

// ErrRecordNotFound is returned by DAOs when no record matches an id.
var ErrRecordNotFound = errors.New("admin: record not found")

// Record is one row of a resource keyed by field name.
type Record map[string]any

// DAO is the storage contract consumed by the admin handlers.
//
// List returns one page of records matching search together with the total
// number of matches. A limit of zero returns every match.
type DAO interface {
	List(ctx context.Context, offset, limit int, search string) ([]Record, int, error)
	Get(ctx context.Context, id string) (Record, error)
	Create(ctx context.Context, data map[string]any) (Record, error)
	Update(ctx context.Context, id string, data map[string]any) (Record, error)
	Delete(ctx context.Context, id string) error
}
