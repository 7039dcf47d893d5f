package records

import (
	"errors"
	"fmt"
	"sync"

	"github.com/recordkit/records/export"
)

// RecordCollection is a lazily materialized sequence of records. Rows are
// pulled from a forward-only source on demand and cached in an append-only
// buffer, so the collection can be iterated, indexed, sliced and exported any
// number of times while touching the database only once.
type RecordCollection struct {
	mu      sync.Mutex
	source  RowSource
	buffer  []*Record
	pending bool
}

// NewRecordCollection wraps a row source in a collection.
func NewRecordCollection(source RowSource) *RecordCollection {
	return &RecordCollection{source: source, pending: true}
}

// newRealizedCollection builds a collection that owns its rows outright, with
// no further source attached.
func newRealizedCollection(rows []*Record) *RecordCollection {
	return &RecordCollection{buffer: rows, pending: false}
}

// Pending reports whether the underlying source may still hold rows.
func (c *RecordCollection) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Len returns the number of rows buffered so far. It does not touch the
// source; use All to realize the full count.
func (c *RecordCollection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}

// pull fetches one row from the source into the buffer. Callers must hold mu;
// the cursor behind the source is not reentrant, so at most one pull is ever
// in flight.
func (c *RecordCollection) pull() (*Record, error) {
	if !c.pending {
		return nil, ErrExhausted
	}
	record, err := c.source.Next()
	if err != nil {
		if errors.Is(err, ErrExhausted) {
			c.pending = false
		}
		return nil, err
	}
	c.buffer = append(c.buffer, record)
	return record, nil
}

// realize pulls rows until the buffer holds at least n rows or the source is
// exhausted. Any error other than exhaustion is returned as is.
func (c *RecordCollection) realize(n int) error {
	for len(c.buffer) < n {
		if _, err := c.pull(); err != nil {
			if errors.Is(err, ErrExhausted) {
				return nil
			}
			return err
		}
	}
	return nil
}

// realizeAll drains the source into the buffer. Idempotent; repeated calls
// are free once the source is drained.
func (c *RecordCollection) realizeAll() error {
	for c.pending {
		if _, err := c.pull(); err != nil {
			if errors.Is(err, ErrExhausted) {
				return nil
			}
			return err
		}
	}
	return nil
}

// Next pulls the next unread row from the source, caches it, and returns it.
// Once the source is drained it returns ErrExhausted, which ends a traversal
// but is not an operational failure.
func (c *RecordCollection) Next() (*Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pull()
}

// Get returns the row at position i, realizing rows from the source as
// needed. If the source drains before reaching i, it returns an index error.
func (c *RecordCollection) Get(i int) (*Record, error) {
	if i < 0 {
		return nil, &IndexError{Index: i, Length: 0}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.realize(i + 1); err != nil {
		return nil, err
	}
	if i >= len(c.buffer) {
		return nil, &IndexError{Index: i, Length: len(c.buffer)}
	}
	return c.buffer[i], nil
}

// Slice realizes rows through stop and returns a new, fully realized
// collection over [start, stop). The result is detached from the original
// source; indexing it never touches the database again. Bounds are clipped to
// the realized length, matching All()[start:stop] for in-range bounds.
func (c *RecordCollection) Slice(start, stop int) (*RecordCollection, error) {
	if start < 0 || stop < start {
		return nil, fmt.Errorf("%w: invalid slice bounds [%d:%d]", ErrIndexOutOfRange, start, stop)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	// Realize exactly up to stop, never one row past it.
	if err := c.realize(stop); err != nil {
		return nil, err
	}
	if start > len(c.buffer) {
		start = len(c.buffer)
	}
	if stop > len(c.buffer) {
		stop = len(c.buffer)
	}
	rows := make([]*Record, stop-start)
	copy(rows, c.buffer[start:stop])
	return newRealizedCollection(rows), nil
}

// SliceFrom is Slice with an unbounded stop: it drains the source and returns
// a realized collection over [start, len).
func (c *RecordCollection) SliceFrom(start int) (*RecordCollection, error) {
	if start < 0 {
		return nil, &IndexError{Index: start, Length: 0}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.realizeAll(); err != nil {
		return nil, err
	}
	if start > len(c.buffer) {
		start = len(c.buffer)
	}
	rows := make([]*Record, len(c.buffer)-start)
	copy(rows, c.buffer[start:])
	return newRealizedCollection(rows), nil
}

// All drains the source and returns every row in order.
func (c *RecordCollection) All() ([]*Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.realizeAll(); err != nil {
		return nil, err
	}
	rows := make([]*Record, len(c.buffer))
	copy(rows, c.buffer)
	return rows, nil
}

// AllMaps returns every row converted to a plain map.
func (c *RecordCollection) AllMaps() ([]map[string]any, error) {
	rows, err := c.All()
	if err != nil {
		return nil, err
	}
	maps := make([]map[string]any, len(rows))
	for i, r := range rows {
		maps[i] = r.AsMap()
	}
	return maps, nil
}

// AllFields returns every row converted to ordered name/value pairs.
func (c *RecordCollection) AllFields() ([][]Field, error) {
	rows, err := c.All()
	if err != nil {
		return nil, err
	}
	out := make([][]Field, len(rows))
	for i, r := range rows {
		out[i] = r.Fields()
	}
	return out, nil
}

// First returns the first row, realizing at most one row from the source.
// When the collection is empty the default is returned instead, unless the
// default is itself an error, in which case that error is returned as the
// failure.
func (c *RecordCollection) First(def any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.realize(1); err != nil {
		return nil, err
	}
	if len(c.buffer) == 0 {
		if err, ok := def.(error); ok {
			return nil, err
		}
		return def, nil
	}
	return c.buffer[0], nil
}

// One is First with a uniqueness check: it realizes up to two rows and fails
// with ErrMultipleRows if a second row exists, regardless of the default.
func (c *RecordCollection) One(def any) (any, error) {
	c.mu.Lock()
	if err := c.realize(2); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if len(c.buffer) > 1 {
		c.mu.Unlock()
		return nil, ErrMultipleRows
	}
	c.mu.Unlock()
	return c.First(def)
}

// Scalar returns the first field of the single row, or the default when the
// collection is empty.
func (c *RecordCollection) Scalar(def any) (any, error) {
	v, err := c.One(def)
	if err != nil {
		return nil, err
	}
	record, ok := v.(*Record)
	if !ok {
		// One returned the default.
		return v, nil
	}
	return record.Get(0)
}

// Dataset drains the collection and builds a dataset whose header is the
// first row's column names. An empty collection yields an empty dataset.
func (c *RecordCollection) Dataset() (*export.Dataset, error) {
	rows, err := c.All()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return export.NewDataset(nil), nil
	}
	data := export.NewDataset(rows[0].Keys())
	for _, r := range rows {
		data.Append(r.Values())
	}
	return data, nil
}

// Export serializes the full collection to the given format.
func (c *RecordCollection) Export(format string) ([]byte, error) {
	data, err := c.Dataset()
	if err != nil {
		return nil, err
	}
	return data.Export(format)
}

// Close releases the underlying source without draining it. Rows already
// buffered remain readable; further pulls report exhaustion.
func (c *RecordCollection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending {
		return nil
	}
	c.pending = false
	if c.source == nil {
		return nil
	}
	return c.source.Close()
}

// Iterator is a restartable, non-destructive traversal over a collection. It
// first replays buffered rows in original order, then continues pulling from
// the still-pending source. Concurrent iterators share the collection's
// growing buffer, so no row is fetched from the database twice.
type Iterator struct {
	collection *RecordCollection
	index      int
}

// Iterator returns a new traversal starting at the first row.
func (c *RecordCollection) Iterator() *Iterator {
	return &Iterator{collection: c}
}

// Next returns the next row of the traversal, or ErrExhausted at the end.
func (it *Iterator) Next() (*Record, error) {
	c := it.collection
	c.mu.Lock()
	defer c.mu.Unlock()
	// Another iterator may have advanced the buffer since our last call, so
	// always check the cache before pulling.
	if it.index < len(c.buffer) {
		record := c.buffer[it.index]
		it.index++
		return record, nil
	}
	record, err := c.pull()
	if err != nil {
		return nil, err
	}
	it.index++
	return record, nil
}
