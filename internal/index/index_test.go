package index

import (
	"reflect"
	"testing"
)

func TestUpsertLookupRemove(t *testing.T) {
	ix := New()

	if _, ok := ix.Lookup("a"); ok {
		t.Fatal("expected miss on empty index")
	}

	if _, existed := ix.Upsert("a", Location{Generation: 0, Offset: 0, Size: 14}); existed {
		t.Fatal("first upsert reported an existing entry")
	}
	prev, existed := ix.Upsert("a", Location{Generation: 1, Offset: 42, Size: 14})
	if !existed || prev.Offset != 0 {
		t.Fatalf("second upsert: prev=%+v existed=%v", prev, existed)
	}

	loc, ok := ix.Lookup("a")
	if !ok || loc.Generation != 1 || loc.Offset != 42 {
		t.Fatalf("lookup after overwrite: %+v, %v", loc, ok)
	}
	if ix.Len() != 1 {
		t.Fatalf("expected len 1, got %d", ix.Len())
	}

	if !ix.Remove("a") {
		t.Fatal("remove of present key returned false")
	}
	if ix.Remove("a") {
		t.Fatal("remove of absent key returned true")
	}
	if ix.Len() != 0 {
		t.Fatalf("expected len 0, got %d", ix.Len())
	}
}

func TestIterateOrderAndRestart(t *testing.T) {
	ix := New()
	for i, k := range []string{"c", "a", "b"} {
		ix.Upsert(k, Location{Offset: int64(i)})
	}

	collect := func() []string {
		var keys []string
		it := ix.Iterate()
		for it.Next() {
			keys = append(keys, it.Key())
		}
		return keys
	}

	want := []string{"a", "b", "c"}
	if got := collect(); !reflect.DeepEqual(got, want) {
		t.Fatalf("iterate: want %v, got %v", want, got)
	}
	if got := collect(); !reflect.DeepEqual(got, want) {
		t.Fatalf("second iterate: want %v, got %v", want, got)
	}
	if got := ix.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("keys: want %v, got %v", want, got)
	}

	it := ix.Iterate()
	it.Next()
	if it.Key() != "a" || it.Location().Offset != 1 {
		t.Fatalf("unexpected first entry %q %+v", it.Key(), it.Location())
	}
}

func TestIterateEmpty(t *testing.T) {
	if New().Iterate().Next() {
		t.Fatal("empty index yielded an entry")
	}
}
