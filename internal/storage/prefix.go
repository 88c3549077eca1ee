package storage

// PrefixDB scopes a component's keys inside a shared database by
// prepending a fixed namespace tag. The orphan pool, for example, keeps
// its block records under its own tag so they never collide with other
// chain state held in the same Badger instance.
type PrefixDB struct {
	inner DB
	tag   []byte
}

// NewPrefixDB wraps inner so that every key lives under tag.
func NewPrefixDB(inner DB, tag []byte) *PrefixDB {
	t := make([]byte, len(tag))
	copy(t, tag)
	return &PrefixDB{inner: inner, tag: t}
}

// tagged returns key with the namespace tag prepended.
func (p *PrefixDB) tagged(key []byte) []byte {
	out := make([]byte, 0, len(p.tag)+len(key))
	out = append(out, p.tag...)
	return append(out, key...)
}

// Get retrieves a value by key.
func (p *PrefixDB) Get(key []byte) ([]byte, error) {
	return p.inner.Get(p.tagged(key))
}

// Put stores a key-value pair.
func (p *PrefixDB) Put(key, value []byte) error {
	return p.inner.Put(p.tagged(key), value)
}

// Delete removes a key.
func (p *PrefixDB) Delete(key []byte) error {
	return p.inner.Delete(p.tagged(key))
}

// Has checks if a key exists.
func (p *PrefixDB) Has(key []byte) (bool, error) {
	return p.inner.Has(p.tagged(key))
}

// ForEach iterates over the namespace's keys matching prefix. Callbacks
// see keys with the namespace tag stripped, so a component iterating
// its own keyspace never learns how it is laid out in the shared DB.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	return p.inner.ForEach(p.tagged(prefix), func(key, value []byte) error {
		return fn(key[len(p.tag):], value)
	})
}

// DeleteAll drains the entire namespace, leaving other namespaces in
// the shared database untouched.
func (p *PrefixDB) DeleteAll() error {
	// Collect first; deleting while the inner iterator runs is undefined
	// for some backends.
	var keys [][]byte
	err := p.inner.ForEach(p.tag, func(key, _ []byte) error {
		k := make([]byte, len(key))
		copy(k, key)
		keys = append(keys, k)
		return nil
	})
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := p.inner.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; the shared database's owner closes it.
func (p *PrefixDB) Close() error {
	return nil
}

// NewBatch returns a batch whose writes land under the namespace tag.
// When the inner DB supports atomic batches the commit is atomic;
// otherwise writes are buffered and applied one by one.
func (p *PrefixDB) NewBatch() Batch {
	if batcher, ok := p.inner.(Batcher); ok {
		return &prefixBatch{db: p, inner: batcher.NewBatch()}
	}
	return &bufferedBatch{db: p}
}

// prefixBatch tags keys and delegates to the inner DB's atomic batch.
type prefixBatch struct {
	db    *PrefixDB
	inner Batch
}

func (b *prefixBatch) Put(key, value []byte) error {
	return b.inner.Put(b.db.tagged(key), value)
}

func (b *prefixBatch) Delete(key []byte) error {
	return b.inner.Delete(b.db.tagged(key))
}

func (b *prefixBatch) Commit() error {
	return b.inner.Commit()
}

// batchOp is one buffered write; a nil value marks a delete.
type batchOp struct {
	key   []byte
	value []byte
}

// bufferedBatch queues writes for backends without native batching and
// replays them on Commit. Not atomic.
type bufferedBatch struct {
	db  *PrefixDB
	ops []batchOp
}

func (b *bufferedBatch) Put(key, value []byte) error {
	k := make([]byte, len(key))
	copy(k, key)
	v := make([]byte, len(value))
	copy(v, value)
	b.ops = append(b.ops, batchOp{key: k, value: v})
	return nil
}

func (b *bufferedBatch) Delete(key []byte) error {
	k := make([]byte, len(key))
	copy(k, key)
	b.ops = append(b.ops, batchOp{key: k})
	return nil
}

func (b *bufferedBatch) Commit() error {
	for _, op := range b.ops {
		if op.value == nil {
			if err := b.db.Delete(op.key); err != nil {
				return err
			}
			continue
		}
		if err := b.db.Put(op.key, op.value); err != nil {
			return err
		}
	}
	b.ops = nil
	return nil
}
