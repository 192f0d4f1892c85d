package index

import (
	"github.com/huandu/skiplist"
)

// Location points at the start of the Set record that last wrote a key.
type Location struct {
	Generation uint64
	Offset     int64
	Size       int64
}

// Index maps live keys to their Location, ordered by key.
// It is not safe for concurrent use.
type Index struct {
	sl *skiplist.SkipList
}

func New() *Index {
	return &Index{
		sl: skiplist.New(skiplist.String),
	}
}

func (ix *Index) Lookup(key string) (Location, bool) {
	val, ok := ix.sl.GetValue(key)
	if !ok {
		return Location{}, false
	}
	return val.(Location), true
}

// Upsert overwrites any prior entry and returns it.
func (ix *Index) Upsert(key string, loc Location) (Location, bool) {
	prev, existed := ix.Lookup(key)
	ix.sl.Set(key, loc)
	return prev, existed
}

// Remove evicts key and reports whether it was present.
func (ix *Index) Remove(key string) bool {
	return ix.sl.Remove(key) != nil
}

func (ix *Index) Len() int {
	return ix.sl.Len()
}

// Keys returns every key in ascending order.
func (ix *Index) Keys() []string {
	out := make([]string, 0, ix.sl.Len())
	for el := ix.sl.Front(); el != nil; el = el.Next() {
		out = append(out, el.Key().(string))
	}
	return out
}

// Iterate walks the index in ascending key order. Mutating the index while
// iterating is allowed but the walk then sees an unspecified mix of states.
func (ix *Index) Iterate() *Iterator {
	return &Iterator{next: ix.sl.Front()}
}

// Iterator yields (key, Location) pairs. Call Next before the first Key.
type Iterator struct {
	next *skiplist.Element
	key  string
	loc  Location
}

func (it *Iterator) Next() bool {
	if it.next == nil {
		return false
	}
	it.key = it.next.Key().(string)
	it.loc = it.next.Value.(Location)
	it.next = it.next.Next()
	return true
}

func (it *Iterator) Key() string {
	return it.key
}

func (it *Iterator) Location() Location {
	return it.loc
}
