package session

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble"
)

const (
	keyPrefix  = "session:"
	expiryLen  = 8
	pebbleMode = 0o700
)

// PebbleStore implements Store on an embedded Pebble database.
// Keys are "session:<id>:<key>"; values carry an 8-byte big-endian expiry
// (unix nanoseconds) before the payload.
type PebbleStore struct {
	db  *pebble.DB
	ttl time.Duration
	now func() time.Time
}

// OpenPebbleStore opens or creates a Pebble database in dir.
// POST: Returns an open store; the caller must Close it
func OpenPebbleStore(dir string, ttl time.Duration) (*PebbleStore, error) {
	if err := os.MkdirAll(filepath.Dir(dir), pebbleMode); err != nil {
		return nil, err
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PebbleStore{db: db, ttl: ttl, now: time.Now}, nil
}

// Get returns the value unless it is missing or expired.
// INVARIANT: Store state is not mutated
func (p *PebbleStore) Get(ctx context.Context, id, key string) ([]byte, bool, error) {
	if err := checkID(id); err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	raw, closer, err := p.db.Get(valueKey(id, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()

	expires, payload, err := decodeValue(raw)
	if err != nil {
		return nil, false, err
	}
	if !p.now().Before(expires) {
		return nil, false, nil
	}
	return append([]byte(nil), payload...), true, nil
}

// Set writes the value and re-stamps every value of the session with the new
// expiry in one batch.
func (p *PebbleStore) Set(ctx context.Context, id, key string, value []byte) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	now := p.now()
	expires := now.Add(p.ttl)

	b := p.db.NewBatch()
	defer b.Close()

	target := valueKey(id, key)
	if err := p.restamp(b, id, now, expires, target); err != nil {
		return err
	}
	if err := b.Set(target, encodeValue(expires, value), nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// Delete removes one value and re-stamps the rest of the session.
func (p *PebbleStore) Delete(ctx context.Context, id, key string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	now := p.now()

	b := p.db.NewBatch()
	defer b.Close()

	target := valueKey(id, key)
	if err := p.restamp(b, id, now, now.Add(p.ttl), target); err != nil {
		return err
	}
	if err := b.Delete(target, nil); err != nil {
		return err
	}
	return b.Commit(pebble.Sync)
}

// restamp queues new expiries for the session's values other than skip.
// Values of an already expired session are queued for deletion instead.
func (p *PebbleStore) restamp(b *pebble.Batch, id string, now, expires time.Time, skip []byte) error {
	lower := sessionPrefix(id)
	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: prefixEnd(lower)})
	if err != nil {
		return err
	}
	defer it.Close()

	for ok := it.First(); ok; ok = it.Next() {
		if string(it.Key()) == string(skip) {
			continue
		}
		k := append([]byte(nil), it.Key()...)
		old, payload, err := decodeValue(it.Value())
		if err != nil {
			return err
		}
		if !now.Before(old) {
			if err := b.Delete(k, nil); err != nil {
				return err
			}
			continue
		}
		if err := b.Set(k, encodeValue(expires, payload), nil); err != nil {
			return err
		}
	}
	return it.Error()
}

// Destroy removes every value of the session.
func (p *PebbleStore) Destroy(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	lower := sessionPrefix(id)
	return p.db.DeleteRange(lower, prefixEnd(lower), pebble.Sync)
}

// Sweep deletes values that expired at or before now.
func (p *PebbleStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	lower := []byte(keyPrefix)
	it, err := p.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: prefixEnd(lower)})
	if err != nil {
		return 0, err
	}

	b := p.db.NewBatch()
	defer b.Close()

	removed := 0
	for ok := it.First(); ok; ok = it.Next() {
		if err := ctx.Err(); err != nil {
			it.Close()
			return 0, err
		}
		expires, _, err := decodeValue(it.Value())
		if err != nil || !now.Before(expires) {
			if err := b.Delete(append([]byte(nil), it.Key()...), nil); err != nil {
				it.Close()
				return 0, err
			}
			removed++
		}
	}
	if err := it.Close(); err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, nil
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	return removed, nil
}

// Close closes the database.
func (p *PebbleStore) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func sessionPrefix(id string) []byte {
	return []byte(keyPrefix + id + ":")
}

func valueKey(id, key string) []byte {
	return []byte(keyPrefix + id + ":" + key)
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func encodeValue(expires time.Time, payload []byte) []byte {
	buf := make([]byte, expiryLen+len(payload))
	binary.BigEndian.PutUint64(buf, uint64(expires.UnixNano()))
	copy(buf[expiryLen:], payload)
	return buf
}

func decodeValue(raw []byte) (time.Time, []byte, error) {
	if len(raw) < expiryLen {
		return time.Time{}, nil, fmt.Errorf("pebble: value too short (%d bytes)", len(raw))
	}
	ns := int64(binary.BigEndian.Uint64(raw[:expiryLen]))
	return time.Unix(0, ns), raw[expiryLen:], nil
}
