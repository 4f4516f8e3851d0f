package session

import (
	"context"

	"flashbox/internal/application/flash"
)

// Bound is one session's view of a Store.
type Bound struct {
	store Store
	id    string
}

var _ flash.Session = (*Bound)(nil)

// Bind returns the view of store for session id.
// PRE: id is non-empty
func Bind(store Store, id string) *Bound {
	return &Bound{store: store, id: id}
}

// ID returns the bound session id.
func (b *Bound) ID() string {
	return b.id
}

func (b *Bound) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return b.store.Get(ctx, b.id, key)
}

func (b *Bound) Set(ctx context.Context, key string, value []byte) error {
	return b.store.Set(ctx, b.id, key, value)
}

func (b *Bound) Delete(ctx context.Context, key string) error {
	return b.store.Delete(ctx, b.id, key)
}
