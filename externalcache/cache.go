// Package externalcache memoizes external.DataSource.Fetch results in an
// embedded key-value store, so a model that reads the same (name,
// geometry, timestep) from multiple entities within a timestep pays for
// one fetch. Grounded on the teacher's datalog/storage/badger_store.go
// Open/Update/View usage, repurposed from a durable datom index to a
// disposable fetch memo — this is explicitly NOT the persistent
// checkpointing spec.md's Non-goals exclude; the store is scratch space
// for one run and safe to discard afterward.
package externalcache

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/badger/v4"

	"github.com/patchsim/engine/external"
	"github.com/patchsim/engine/geo"
	"github.com/patchsim/engine/value"
)

// Cache wraps an embedded badger.DB as a fetch memo.
type Cache struct {
	db *badger.DB
}

// Open opens (or creates) a badger store at dir. Pass "" for an
// in-memory-only store, useful for tests and short runs that don't need
// survival past process exit.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("externalcache: open: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying store.
func (c *Cache) Close() error { return c.db.Close() }

// record is the gob-serializable payload stored per cache entry: enough of
// a Realized distribution's shape to reconstruct it, per spec §6's "the
// format need not be specified bit-exact".
type record struct {
	Units value.Units
	Kind  []value.Kind
	Ints  []int64
	Dbls  []float64
	Strs  []string
}

func key(name string, g geo.Geometry, timestep int) []byte {
	minX, minY, maxX, maxY := g.Bounds()
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s|%d|%.6f,%.6f,%.6f,%.6f", name, timestep, minX, minY, maxX, maxY)
	h := xxhash.Sum64(buf.Bytes())
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, h)
	return out
}

// Get returns a previously cached Fetch result, if present.
func (c *Cache) Get(name string, g geo.Geometry, timestep int) (*value.Realized, bool, error) {
	var rec record
	found := false
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(name, g, timestep))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&rec)
		})
	})
	if err != nil {
		return nil, false, fmt.Errorf("externalcache: get: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return rec.toDistribution(), true, nil
}

// Put memoizes a Fetch result for (name, geometry, timestep).
func (c *Cache) Put(name string, g geo.Geometry, timestep int, dist *value.Realized) error {
	items, err := dist.Contents()
	if err != nil {
		return fmt.Errorf("externalcache: put: %w", err)
	}
	rec := fromContents(dist.Units(), items)

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return fmt.Errorf("externalcache: encode: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(name, g, timestep), buf.Bytes())
	})
}

// DataSource adapts a Cache into an external.DataSource. A miss is reported
// as a fetch failure: this cache has no upstream fetcher of its own —
// concrete data sources are out of scope — so the only way a name is ever
// satisfied is by a prior Put.
type DataSource struct {
	Cache *Cache
}

var _ external.DataSource = DataSource{}

// Fetch implements external.DataSource.
func (d DataSource) Fetch(ctx context.Context, name string, geometry geo.Geometry, timestep int) (value.Distribution, error) {
	dist, ok, err := d.Cache.Get(name, geometry, timestep)
	if err != nil {
		return nil, fmt.Errorf("externalcache: fetch %q: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("externalcache: no cached value for %q at timestep %d", name, timestep)
	}
	return dist, nil
}

func fromContents(units value.Units, items []value.Value) record {
	rec := record{Units: units, Kind: make([]value.Kind, len(items))}
	for i, v := range items {
		rec.Kind[i] = v.Kind()
		switch v.Kind() {
		case value.KindInteger:
			n, _ := v.AsInt()
			rec.Ints = append(rec.Ints, n)
		case value.KindString:
			s, _ := v.AsString()
			rec.Strs = append(rec.Strs, s)
		default:
			rec.Dbls = append(rec.Dbls, v.AsFloat64())
		}
	}
	return rec
}

func (rec record) toDistribution() *value.Realized {
	u := rec.Units
	items := make([]value.Value, len(rec.Kind))
	var ii, di, si int
	for i, k := range rec.Kind {
		switch k {
		case value.KindInteger:
			items[i] = value.Int(rec.Ints[ii], u)
			ii++
		case value.KindString:
			items[i] = value.String(rec.Strs[si])
			si++
		default:
			items[i] = value.Double(rec.Dbls[di], u)
			di++
		}
	}
	return value.NewRealized(items, u)
}
